package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/aristath/quantum-portfolio/internal/events"
)

const (
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// wsMessage is the frame sent to websocket subscribers
type wsMessage struct {
	Type      string      `json:"type"`
	Module    string      `json:"module,omitempty"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// handleEventsWS handles GET /api/events/ws?types=RUN_COMPLETED,RUN_FAILED
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Bus == nil {
		http.Error(w, "Event stream not available", http.StatusServiceUnavailable)
		return
	}

	var types []events.EventType
	if filter := r.URL.Query().Get("types"); filter != "" {
		for _, t := range strings.Split(filter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, events.EventType(strings.ToUpper(t)))
			}
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to accept websocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch := s.cfg.Bus.Subscribe(types...)
	defer s.cfg.Bus.Unsubscribe(ch)

	s.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	// Clients only listen; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(r.Context())

	if err := s.writeWS(ctx, conn, wsMessage{Type: "connected", Timestamp: time.Now().Format(time.RFC3339)}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			msg := wsMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}
			if err := s.writeWS(ctx, conn, msg); err != nil {
				s.log.Debug().Err(err).Msg("Failed to send event")
				return
			}

		case <-heartbeat.C:
			if err := s.writeWS(ctx, conn, wsMessage{Type: "heartbeat", Timestamp: time.Now().Format(time.RFC3339)}); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeWS(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal event")
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
