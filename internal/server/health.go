package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olynch/presentations/internal/version"
)

type healthBuild struct {
	Total         int64   `json:"total"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	Slides        int     `json:"slides"`
	LastBuildID   string  `json:"last_build_id,omitempty"`
	AverageMillis float64 `json:"average_ms"`
}

type healthResponse struct {
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	Uptime      string       `json:"uptime"`
	Version     string       `json:"version"`
	Subscribers int          `json:"subscribers"`
	Build       *healthBuild `json:"build,omitempty"`
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Version:     version.Get().Short(),
		Subscribers: s.hub.Subscribers(),
	}

	if s.opts.Stats != nil {
		m := s.opts.Stats.Snapshot()
		resp.Build = &healthBuild{
			Total:         m.TotalBuilds,
			Succeeded:     m.SuccessfulBuilds,
			Failed:        m.FailedBuilds,
			Slides:        m.LastSlides,
			LastBuildID:   m.LastBuildID,
			AverageMillis: float64(m.AverageDuration) / float64(time.Millisecond),
		}
		if m.TotalBuilds > 0 && m.SuccessfulBuilds == 0 {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}
