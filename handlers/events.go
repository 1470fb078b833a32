// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/votedesk/middleware"
	"github.com/danielhkuo/votedesk/notify"
)

const (
	eventBuffer  = 32
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type EventsHandler struct {
	bus      *notify.Bus
	auth     middleware.Authenticator
	upgrader websocket.Upgrader
}

// NewEventsHandler accepts browser origins that match the request host or
// appear in allowedOrigins. Requests without an Origin header are allowed.
func NewEventsHandler(bus *notify.Bus, auth middleware.Authenticator, allowedOrigins []string) *EventsHandler {
	h := &EventsHandler{bus: bus, auth: auth}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
	return h
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(allowed, strings.TrimSuffix(origin, "/")) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// eventToken reads the session token from the "token" query parameter,
// falling back to the Authorization header. Browsers cannot set headers on
// a WebSocket handshake.
func eventToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return middleware.BearerToken(r)
}

// Stream handles GET /events
// Authenticates the session, upgrades to a WebSocket and forwards bus events
// as JSON until either side goes away. Only admins see the user_id of events
// caused by other users. Incoming messages are ignored.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	token := eventToken(r)
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session token required")
		return
	}
	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		slog.Info("event stream authentication failed", "error", err)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "user_id", user.ID, "error", err)
		return
	}
	defer ws.Close()

	events, cancel := h.bus.Subscribe(eventBuffer)
	defer cancel()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) &&
					(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
					return
				}
				slog.Debug("websocket read ended", "error", err)
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	slog.Info("event stream opened", "user_id", user.ID, "remote", r.RemoteAddr)
	defer slog.Info("event stream closed", "user_id", user.ID, "remote", r.RemoteAddr)

	for {
		select {
		case <-quit:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			if !user.IsAdmin && e.UserID != user.ID {
				e.UserID = ""
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(e); err != nil {
				slog.Error("failed to write event", "error", err)
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
