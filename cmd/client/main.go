package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-hub/domain"
	"chat-hub/domain/event"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Email         string `env:"CHAT_EMAIL,required=true"`
	Password      string `env:"CHAT_PASSWORD,required=true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	token, err := login(config)
	if err != nil {
		return exitRuntime, err
	}

	wsURL := url.URL{Scheme: "ws", Host: config.ServerAddress, Path: "/ws",
		RawQuery: url.Values{"token": {token}}.Encode()}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("dial %s: %w", wsURL.Host, err)
	}
	defer func() { _ = conn.Close() }()

	color.Cyanln("Connected. /create <title>, /delete <id>, /join <id>, /leave, /pm <userId> <text>, /msg <channelId> <text>, plain text broadcasts.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn)
	}()

	go readInput(conn)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-done:
	case <-sig:
	}
	return exitOK, nil
}

func login(config Config) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    config.Email,
		"password": config.Password,
	})
	resp, err := http.Post(fmt.Sprintf("http://%s/login", config.ServerAddress),
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected: %s", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("login response: %w", err)
	}
	return out.Token, nil
}

// receive renders server events until the connection drops.
func receive(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			color.Redln("connection closed:", err)
			return
		}
		var envelope struct {
			Event   event.Name      `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}
		render(envelope.Event, envelope.Payload)
	}
}

func render(name event.Name, payload json.RawMessage) {
	switch name {
	case event.Message:
		var text string
		_ = json.Unmarshal(payload, &text)
		color.Greenln(text)
	case event.PresenceList:
		var entries []event.PresenceEntry
		_ = json.Unmarshal(payload, &entries)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Email", "User ID", "Connection"})
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, e := range entries {
			table.Append([]string{e.Email, e.UserID, e.ConnectionID})
		}
		color.Cyanln("-- online --")
		table.Render()
	case event.ChannelList:
		var channels []domain.Channel
		_ = json.Unmarshal(payload, &channels)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Title"})
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, ch := range channels {
			table.Append([]string{strconv.FormatInt(int64(ch.ID), 10), ch.Title})
		}
		color.Cyanln("-- channels --")
		table.Render()
	case event.ChannelJoined:
		var m event.ChannelMembership
		_ = json.Unmarshal(payload, &m)
		color.Yellowln(fmt.Sprintf("* %s joined channel %d", m.ConnectionID, m.ChannelID))
	case event.ChannelLeft:
		var m event.ChannelMembership
		_ = json.Unmarshal(payload, &m)
		color.Yellowln(fmt.Sprintf("* %s left channel %d", m.ConnectionID, m.ChannelID))
	case event.Error:
		var text string
		_ = json.Unmarshal(payload, &text)
		color.Redln("error:", text)
	}
}

// readInput turns stdin lines into command frames.
func readInput(conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		action, payload, err := parseLine(line)
		if err != nil {
			color.Redln(err.Error())
			continue
		}
		frame := map[string]any{"action": action, "payload": payload}
		if err := conn.WriteJSON(frame); err != nil {
			color.Redln("send failed:", err)
			return
		}
	}
}

func parseLine(line string) (string, any, error) {
	if !strings.HasPrefix(line, "/") {
		return "sendMessage", domain.SendMessageCommand{Text: line}, nil
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	switch cmd {
	case "create":
		if rest == "" {
			return "", nil, fmt.Errorf("usage: /create <title>")
		}
		return "createChannel", domain.CreateChannelCommand{Title: rest}, nil
	case "delete":
		id, err := parseChannelID(rest)
		if err != nil {
			return "", nil, err
		}
		return "deleteChannel", domain.DeleteChannelCommand{ChannelID: id}, nil
	case "join":
		id, err := parseChannelID(rest)
		if err != nil {
			return "", nil, err
		}
		return "joinChannel", domain.JoinChannelCommand{ChannelID: &id}, nil
	case "leave":
		return "joinChannel", domain.JoinChannelCommand{}, nil
	case "pm":
		target, text, ok := strings.Cut(rest, " ")
		if !ok {
			return "", nil, fmt.Errorf("usage: /pm <userId> <text>")
		}
		userID := domain.UserID(target)
		return "sendMessage", domain.SendMessageCommand{Text: text, TargetUserID: &userID}, nil
	case "msg":
		channel, text, ok := strings.Cut(rest, " ")
		if !ok {
			return "", nil, fmt.Errorf("usage: /msg <channelId> <text>")
		}
		id, err := parseChannelID(channel)
		if err != nil {
			return "", nil, err
		}
		return "sendMessage", domain.SendMessageCommand{Text: text, ChannelID: &id}, nil
	default:
		return "", nil, fmt.Errorf("unknown command /%s", cmd)
	}
}

func parseChannelID(s string) (domain.ChannelID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid channel id %q", s)
	}
	return domain.ChannelID(n), nil
}
