package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/goldmafia/clubhouse/internal/auth"
	"github.com/goldmafia/clubhouse/internal/pubsub"
)

var errTooManyRooms = errors.New("too many rooms")

// Handler upgrades authenticated requests into pin event feeds
type Handler struct {
	ps       pubsub.PubSub
	tokens   auth.Validator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a WebSocket handler. allowedOrigin is the browser app's
// base URL; an empty value accepts any origin.
func NewHandler(ps pubsub.PubSub, tokens auth.Validator, allowedOrigin string, logger *slog.Logger) *Handler {
	return &Handler{
		ps:     ps,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		logger: logger.With("component", "websocket"),
	}
}

func originChecker(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "" || origin == "" {
			return true
		}
		u, err := url.Parse(allowed)
		if err != nil {
			return false
		}
		return strings.EqualFold(origin, u.Scheme+"://"+u.Host)
	}
}

// ServeHTTP authenticates, upgrades, and serves the connection until it closes.
// Browsers cannot set headers on upgrade requests, so the token may also be
// passed as the "token" query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			token = header[7:]
		}
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// The request context ends when ServeHTTP returns after the upgrade
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(conn, h.ps, claims.UserID, claims.Username, h.logger)
	if err := client.Subscribe(ctx, pubsub.Topics.User(claims.UserID.String())); err != nil {
		h.logger.Error("subscribe user topic failed", "user_id", claims.UserID, "error", err)
		_ = conn.Close()
		return
	}

	go client.WritePump(ctx)
	client.reply(EventTypeConnected, ConnectedPayload{UserID: claims.UserID, Username: claims.Username})
	h.logger.Info("feed connected", "user_id", claims.UserID)

	client.ReadPump(ctx)
	h.logger.Info("feed disconnected", "user_id", claims.UserID)
}
