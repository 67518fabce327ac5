package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/olynch/presentations/internal/broadcast"
)

const writeTimeout = 5 * time.Second

// UpdateMessage represents a message sent to websocket clients
type UpdateMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	BuildID   string    `json:"build_id,omitempty"`
	Slides    int       `json:"slides"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket relays refresh signals as JSON messages. Idle
// connections are pinged at the keep-alive interval.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sub := s.hub.Subscribe()
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed", "origin", r.Header.Get("Origin"))
		return
	}
	defer conn.CloseNow()

	// Clients never send data; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.keepAlive)
		sig, err := sub.Recv(waitCtx)
		cancel()

		switch {
		case err == nil:
			msg := UpdateMessage{
				Type:      "refresh",
				ID:        sig.ID,
				BuildID:   sig.BuildID,
				Slides:    sig.Slides,
				Timestamp: sig.At,
			}
			if err := s.writeJSON(ctx, conn, msg); err != nil {
				return
			}
		case errors.Is(err, broadcast.ErrLagged):
			s.logger.Warn(ctx, err, "websocket client lagged")
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case errors.Is(err, broadcast.ErrClosed):
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		default:
			return
		}
	}
}

func (s *PreviewServer) writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
