// Package ws exposes the chat core over WebSocket: it upgrades
// connections, resolves identity, decodes inbound commands, and
// implements the Transport contract the lifecycle controller delivers
// through.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/runtime"
)

const (
	actionCreateChannel = "createChannel"
	actionDeleteChannel = "deleteChannel"
	actionJoinChannel   = "joinChannel"
	actionSendMessage   = "sendMessage"
)

type Gateway struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	resolver contract.IdentityResolver
	users    *auth.UserStore
	secret   []byte
	tokenTTL time.Duration
	validate *validator.Validate

	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration

	controller *runtime.Controller

	mu    sync.RWMutex
	conns map[domain.ConnectionID]*client
}

func NewGateway(log *slog.Logger, resolver contract.IdentityResolver,
	users *auth.UserStore, secret []byte, tokenTTL time.Duration,
	sendBuffer int, writeTimeout, pingInterval time.Duration) *Gateway {
	return &Gateway{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		resolver:     resolver,
		users:        users,
		secret:       secret,
		tokenTTL:     tokenTTL,
		validate:     validator.New(),
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		conns:        make(map[domain.ConnectionID]*client),
	}
}

// Attach wires the lifecycle controller. The controller needs the gateway
// as its Transport, so it is constructed after the gateway and attached
// before Register is called.
func (g *Gateway) Attach(controller *runtime.Controller) {
	g.controller = controller
}

func (g *Gateway) Register(r *gin.Engine) {
	r.POST("/login", g.handleLogin)
	r.GET("/ws", g.handleWS)
}

// Shutdown closes every live connection.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	clients := make([]*client, 0, len(g.conns))
	for _, cl := range g.conns {
		clients = append(clients, cl)
	}
	g.conns = make(map[domain.ConnectionID]*client)
	g.mu.Unlock()

	for _, cl := range clients {
		cl.close()
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (g *Gateway) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := g.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := g.users.Authenticate(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user, g.tokenTTL, g.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "email": user.Email},
	})
}

func (g *Gateway) handleWS(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := g.resolver.ResolveUser(ctx, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrAuthenticationRequired.Error()})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	cl := newClient(connID, user, conn, g.log, g.sendBuffer, g.writeTimeout, g.pingInterval)

	g.mu.Lock()
	g.conns[connID] = cl
	g.mu.Unlock()

	go cl.writePump()

	defer func() {
		g.mu.Lock()
		delete(g.conns, connID)
		g.mu.Unlock()
		cl.close()
		g.controller.Disconnect(context.WithoutCancel(ctx), connID)
		g.log.Info("connection closed", "connection", connID, "user", user.Email)
	}()

	if err := g.controller.Connect(ctx, user, connID); err != nil {
		return
	}
	g.log.Info("connection established", "connection", connID, "user", user.Email)

	cl.readLoop(func(frame inboundFrame) {
		g.dispatch(ctx, cl, frame)
	})
}

// dispatch routes one inbound frame to the controller. Controller
// failures are already reported to the caller as error events, so only a
// debug line remains here.
func (g *Gateway) dispatch(ctx context.Context, cl *client, frame inboundFrame) {
	var err error
	switch frame.Action {
	case actionCreateChannel:
		var cmd domain.CreateChannelCommand
		if !g.decode(cl, frame.Payload, &cmd) {
			return
		}
		err = g.controller.CreateChannel(ctx, cl.id, cmd)
	case actionDeleteChannel:
		var cmd domain.DeleteChannelCommand
		if !g.decode(cl, frame.Payload, &cmd) {
			return
		}
		err = g.controller.DeleteChannel(ctx, cl.id, cmd)
	case actionJoinChannel:
		var cmd domain.JoinChannelCommand
		if !g.decode(cl, frame.Payload, &cmd) {
			return
		}
		err = g.controller.JoinChannel(ctx, cl.user, cl.id, cmd)
	case actionSendMessage:
		var cmd domain.SendMessageCommand
		if !g.decode(cl, frame.Payload, &cmd) {
			return
		}
		err = g.controller.SendMessage(ctx, cl.user, cl.id, cmd)
	default:
		cl.enqueue(event.NewError(fmt.Sprintf("unknown action %q", frame.Action)))
		return
	}

	if err != nil {
		g.log.Debug("command failed", "action", frame.Action, "connection", cl.id, "error", err)
	}
}

// decode unmarshals and validates a command payload, reporting failures
// to the caller only.
func (g *Gateway) decode(cl *client, payload json.RawMessage, cmd any) bool {
	if err := json.Unmarshal(payload, cmd); err != nil {
		cl.enqueue(event.NewError("malformed payload"))
		return false
	}
	if err := g.validate.Struct(cmd); err != nil {
		cl.enqueue(event.NewError(fmt.Sprintf("invalid payload: %v", err)))
		return false
	}
	return true
}

// SendTo delivers one event to one connection. A missing connection or a
// saturated outbound buffer is a delivery failure for that recipient only.
func (g *Gateway) SendTo(_ context.Context, conn domain.ConnectionID, evt event.Envelope) error {
	g.mu.RLock()
	cl, ok := g.conns[conn]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection %s gone: %w", conn, errors.ErrDeliveryFailure)
	}
	if !cl.enqueue(evt) {
		return fmt.Errorf("connection %s buffer full: %w", conn, errors.ErrDeliveryFailure)
	}
	return nil
}

func (g *Gateway) SendToSet(ctx context.Context, conns []domain.ConnectionID, evt event.Envelope) {
	for _, conn := range conns {
		if err := g.SendTo(ctx, conn, evt); err != nil {
			g.log.Warn("delivery failed", "connection", conn, "event", evt.Event, "error", err)
		}
	}
}

func (g *Gateway) SendToAll(ctx context.Context, evt event.Envelope) {
	g.mu.RLock()
	conns := make([]domain.ConnectionID, 0, len(g.conns))
	for id := range g.conns {
		conns = append(conns, id)
	}
	g.mu.RUnlock()

	g.SendToSet(ctx, conns, evt)
}
