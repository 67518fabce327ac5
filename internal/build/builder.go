// Package build runs the whole-deck build: static assets are mirrored, the
// source is parsed and segmented, every slide page is rendered, an index
// page is written and pages left over from a longer deck are removed.
//
// A Builder is synchronous and not safe for concurrent use; callers
// serialize builds.
package build

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olynch/presentations/internal/assets"
	"github.com/olynch/presentations/internal/config"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
	"github.com/olynch/presentations/internal/markup"
	"github.com/olynch/presentations/internal/render"
	"github.com/olynch/presentations/internal/slides"
)

// StaticDir is the directory under out that static assets are mirrored to.
const StaticDir = "static"

var pageFile = regexp.MustCompile(`^([0-9]+)\.html$`)

// Options tune a Builder.
type Options struct {
	// Dev writes the client refresh script to out/refresh.js.
	Dev bool
}

// Result describes a successful build.
type Result struct {
	ID       string
	Slides   int
	Pruned   []string
	Duration time.Duration
}

// Builder builds a deck described by a Config.
type Builder struct {
	cfg     *config.Config
	opts    Options
	parser  *markup.Parser
	pages   *render.PageRenderer
	index   *render.IndexRenderer
	metrics *Metrics
	logger  logging.Logger
}

// NewBuilder creates a builder for cfg.
func NewBuilder(cfg *config.Config, opts Options, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{
		cfg:     cfg,
		opts:    opts,
		parser:  markup.NewParser(),
		pages:   render.NewPageRenderer(cfg.Template, logger),
		index:   render.NewIndexRenderer(cfg.Src),
		metrics: NewMetrics(),
		logger:  logger.WithComponent("build"),
	}
}

// Metrics returns the builder's build counters.
func (b *Builder) Metrics() *Metrics {
	return b.metrics
}

// Build runs one full build. Files written before a failure are left in
// place.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	start := time.Now()
	result, err := b.build(ctx)
	result.Duration = time.Since(start)
	b.metrics.Record(result, err)

	if err != nil {
		b.logger.Error(ctx, err, "build failed", "duration", result.Duration)
		return result, err
	}

	b.logger.Info(ctx, "build complete",
		"build_id", result.ID,
		"slides", result.Slides,
		"pruned", len(result.Pruned),
		"duration", result.Duration)
	return result, nil
}

func (b *Builder) build(ctx context.Context) (Result, error) {
	result := Result{ID: uuid.NewString()}

	if err := os.MkdirAll(b.cfg.Out, 0o755); err != nil {
		return result, errors.NewIOError(errors.ErrCodeWriteFailed, "creating output directory", err).WithPath(b.cfg.Out)
	}

	if err := assets.CopyTree(b.cfg.Static, filepath.Join(b.cfg.Out, StaticDir)); err != nil {
		return result, err
	}

	if b.opts.Dev {
		if err := assets.WriteRefreshScript(b.cfg.Out); err != nil {
			return result, err
		}
	}

	src, err := os.ReadFile(b.cfg.Src)
	if err != nil {
		return result, errors.NewIOError(errors.ErrCodeReadFailed, "reading source", err).WithPath(b.cfg.Src)
	}

	doc, err := b.parser.Parse(src)
	if err != nil {
		if de, ok := err.(*errors.DeckError); ok {
			return result, de.WithPath(b.cfg.Src)
		}
		return result, err
	}

	deck := slides.Segment(doc.Events())
	b.logger.Debug(ctx, "segmented source", "path", b.cfg.Src, "slides", len(deck))

	pages, err := b.pages.RenderAll(ctx, doc, deck, b.cfg.Out)
	if err != nil {
		return result, err
	}
	result.Slides = len(pages)

	if err := b.index.Write(ctx, pages, b.cfg.Out); err != nil {
		return result, err
	}

	pruned, err := prune(b.cfg.Out, len(pages))
	result.Pruned = pruned
	if err != nil {
		return result, err
	}
	for _, p := range pruned {
		b.logger.Debug(ctx, "removed stale page", "path", p)
	}

	return result, nil
}

// prune removes out/{k}.html for every k > total.
func prune(outDir string, total int) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "listing output directory", err).WithPath(outDir)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n <= total {
			continue
		}
		path := filepath.Join(outDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, errors.NewIOError(errors.ErrCodeWriteFailed, "removing stale page", err).WithPath(path)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
