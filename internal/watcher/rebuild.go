package watcher

import (
	"context"

	"github.com/olynch/presentations/internal/broadcast"
	"github.com/olynch/presentations/internal/build"
	"github.com/olynch/presentations/internal/logging"
)

// Builder runs one deck build.
type Builder interface {
	Build(ctx context.Context) (build.Result, error)
}

// Publisher receives refresh signals.
type Publisher interface {
	Publish(s broadcast.Signal) int
}

// RebuildLoop rebuilds the deck for every batch that contains a
// modification and publishes one refresh signal per successful build.
// Register Handle with FileWatcher.AddHandler; the watcher runs handlers on
// a single goroutine so builds never overlap.
type RebuildLoop struct {
	builder   Builder
	publisher Publisher
	logger    logging.Logger
}

// NewRebuildLoop creates a rebuild loop.
func NewRebuildLoop(builder Builder, publisher Publisher, logger logging.Logger) *RebuildLoop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RebuildLoop{
		builder:   builder,
		publisher: publisher,
		logger:    logger.WithComponent("watcher"),
	}
}

// Handle is a ChangeHandler. A failed build is logged and publishes
// nothing; the error is not returned so the watcher keeps running quietly.
func (l *RebuildLoop) Handle(ctx context.Context, events []ChangeEvent) error {
	if !HasModification(events) {
		l.logger.Debug(ctx, "ignoring batch without modifications", "events", len(events))
		return nil
	}

	paths := make([]string, len(events))
	for i, ev := range events {
		paths[i] = ev.Path
	}
	l.logger.Info(ctx, "change detected, rebuilding", "paths", paths)

	result, err := l.builder.Build(ctx)
	if err != nil {
		l.logger.Error(ctx, err, "rebuild failed, keeping previous output")
		return nil
	}

	n := l.publisher.Publish(broadcast.NewSignal(result.ID, result.Slides))
	l.logger.Debug(ctx, "published refresh", "build_id", result.ID, "subscribers", n)
	return nil
}
