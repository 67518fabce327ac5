package build

import (
	"sync"
	"time"
)

// Metrics tracks build outcomes for one Builder.
type Metrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	LastSlides       int
	LastBuildID      string
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewMetrics creates a new build metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Record records a build result in the metrics. LastSlides and LastBuildID
// only change on success.
func (m *Metrics) Record(result Result, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalBuilds++
	m.TotalDuration += result.Duration

	if err != nil {
		m.FailedBuilds++
	} else {
		m.SuccessfulBuilds++
		m.LastSlides = result.Slides
		m.LastBuildID = result.ID
	}

	m.AverageDuration = m.TotalDuration / time.Duration(m.TotalBuilds)
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return Metrics{
		TotalBuilds:      m.TotalBuilds,
		SuccessfulBuilds: m.SuccessfulBuilds,
		FailedBuilds:     m.FailedBuilds,
		LastSlides:       m.LastSlides,
		LastBuildID:      m.LastBuildID,
		AverageDuration:  m.AverageDuration,
		TotalDuration:    m.TotalDuration,
	}
}

// SuccessRate returns the share of successful builds as a percentage.
func (m *Metrics) SuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.TotalBuilds == 0 {
		return 0.0
	}
	return float64(m.SuccessfulBuilds) / float64(m.TotalBuilds) * 100.0
}
