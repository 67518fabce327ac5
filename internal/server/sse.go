package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/olynch/presentations/internal/assets"
	"github.com/olynch/presentations/internal/broadcast"
)

func (s *PreviewServer) handleRefreshScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(assets.RefreshScript); err != nil {
		s.logger.Debug(r.Context(), "writing refresh script", "error", err)
	}
}

// handleRefresh streams one "refresh" event per published signal. The
// subscription is taken before the response header is sent, so a client
// that has seen the header will not miss a later rebuild.
func (s *PreviewServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub := s.hub.Subscribe()
	defer sub.Close()

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn(ctx, err, "streaming not supported")
		return
	}

	s.logger.Debug(ctx, "sse client connected", "remote", r.RemoteAddr)
	defer s.logger.Debug(ctx, "sse client disconnected", "remote", r.RemoteAddr)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.keepAlive)
		sig, err := sub.Recv(waitCtx)
		cancel()

		var frame string
		switch {
		case err == nil:
			frame = fmt.Sprintf("id: %s\ndata: refresh\n\n", sig.ID)
		case errors.Is(err, broadcast.ErrLagged):
			var lag *broadcast.LagError
			skipped := uint64(0)
			if errors.As(err, &lag) {
				skipped = lag.Skipped
			}
			s.logger.Warn(ctx, err, "sse client lagged", "skipped", skipped)
			continue
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			frame = ": keep-alive\n\n"
		default:
			// Client went away or the hub closed.
			return
		}

		if _, err := fmt.Fprint(w, frame); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
