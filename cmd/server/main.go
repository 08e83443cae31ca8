package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-hub/auth"
	"chat-hub/infrastructure/storage"
	"chat-hub/infrastructure/ws"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/runtime"
)

// Exit codes to provide meaningful status to the operating system or
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// Thin wrapper: call run() and translate its outcome to an exit code,
	// so deferred cleanups always execute before the process dies.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	mask, err := maskRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	// 2. Channel catalog (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	catalog, err := storage.NewChannelCatalog(db, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = catalog.Close() }()

	// 3. Moderation filter (optional)
	filter, err := loadFilter(config.CensoredWordsPath, mask)
	if err != nil {
		return exitConfig, err
	}
	if filter != nil {
		log.Info("Moderation filter enabled", "wordlist", config.CensoredWordsPath)
	}

	// 4. Identity
	users := auth.NewUserStore()
	if err := users.Seed(config.SeedUsers); err != nil {
		return exitConfig, fmt.Errorf("seed users: %w", err)
	}
	resolver := auth.NewResolver([]byte(config.AuthSecret))

	// 5. Core wiring. The gateway is the controller's transport, so it is
	// built first and the controller attached afterwards.
	gateway := ws.NewGateway(log, resolver, users,
		[]byte(config.AuthSecret), config.AuthTokenDuration,
		config.ConnectionBufferSize, config.WriteTimeout, config.PingInterval)

	presence := runtime.NewPresenceRegistry()
	members := runtime.NewMembershipTable(catalog)
	router := runtime.NewRouter(catalog, presence, members, filter)
	controller := runtime.NewController(log, presence, members, router, catalog, gateway)
	gateway.Attach(controller)

	// 6. HTTP server
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	gateway.Register(engine)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: engine,
	}

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop accepting, then drop live sockets.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	gateway.Shutdown()
	log.Info("Program stopped cleanly")

	return exitOK, nil
}

// loadFilter reads the censored word list when a path is configured; no
// path means moderation stays off.
func loadFilter(path string, mask rune) (*moderation.Filter, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("censored word list: %w", err)
	}
	defer func() { _ = f.Close() }()

	words, err := moderation.ReadWordList(f)
	if err != nil {
		return nil, fmt.Errorf("censored word list: %w", err)
	}
	return moderation.NewFilter(words, mask)
}

func maskRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
