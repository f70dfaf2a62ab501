package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cvaas/quest-engine/internal/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame sent on the events stream
type StreamMessage struct {
	Type  string        `json:"type"`
	Data  string        `json:"data,omitempty"`
	Event *events.Event `json:"event,omitempty"`
}

// handleEventsWS streams the caller's review and badge events until the
// client disconnects.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "events_unavailable", "event stream is not enabled")
		return
	}

	principal := PrincipalFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(principal.UserID)
	defer sub.Close()

	slog.Info("events websocket connected", "user", principal.MaskedUserID())

	if err := s.sendStreamMessage(conn, StreamMessage{
		Type: "connected",
		Data: "Subscribed to quest events",
	}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup

	// Hub -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := s.sendStreamMessage(conn, StreamMessage{Type: "event", Event: &ev}); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					slog.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}()

	// WebSocket reads only detect disconnects and keep pongs flowing
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	<-ctx.Done()
	// unblock the reader
	_ = conn.SetReadDeadline(time.Now())
	wg.Wait()

	slog.Info("events websocket disconnected", "user", principal.MaskedUserID())
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}
