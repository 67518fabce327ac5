// Package watcher watches the deck's inputs and triggers rebuilds.
//
// Raw fsnotify events are filtered to the watched files and trees, then
// coalesced by a Debouncer: every event re-arms a timer and when it fires
// the pending batch, deduplicated per path, is handed to the registered
// handlers on a single goroutine.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/olynch/presentations/internal/errors"
	"github.com/olynch/presentations/internal/logging"
)

// DefaultDebounce is the debounce window used by the serve command.
const DefaultDebounce = 20 * time.Millisecond

// FileWatcher watches files and directory trees with debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	files     map[string]struct{}
	trees     []string
	logger    logging.Logger
	mutex     sync.RWMutex
}

// ChangeEvent is the merged change to one path within a batch
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType is a set of change kinds. Types of events for the same path
// within one batch are OR-ed together.
type EventType uint8

const (
	EventTypeCreated EventType = 1 << iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
	EventTypeChmod
)

var eventTypeNames = []struct {
	t    EventType
	name string
}{
	{EventTypeCreated, "created"},
	{EventTypeModified, "modified"},
	{EventTypeDeleted, "deleted"},
	{EventTypeRenamed, "renamed"},
	{EventTypeChmod, "chmod"},
}

// String returns the string representation of the EventType
func (e EventType) String() string {
	var names []string
	for _, n := range eventTypeNames {
		if e&n.t != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "|")
}

// Has reports whether e includes every kind in t.
func (e EventType) Has(t EventType) bool {
	return e&t == t
}

// IsModification reports whether the change may have altered file content
// or metadata. Pure removals are not modifications.
func (e EventType) IsModification() bool {
	return e&(EventTypeCreated|EventTypeModified|EventTypeRenamed|EventTypeChmod) != 0
}

// HasModification reports whether any event in the batch is a modification.
func HasModification(events []ChangeEvent) bool {
	for _, ev := range events {
		if ev.Type.IsModification() {
			return true
		}
	}
	return false
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles a debounced batch of change events
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	gen     uint64
	pending map[string]ChangeEvent
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer with the given window. At most one
// batch waits for a consumer; later batches keep accumulating.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 1),
		pending: make(map[string]ChangeEvent),
	}
}

// Batches returns the channel debounced batches are delivered on.
func (d *Debouncer) Batches() <-chan []ChangeEvent {
	return d.output
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewWatchError(errors.ErrCodeWatchSetup, "creating file watcher", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(debounceDelay),
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		files:     make(map[string]struct{}),
		logger:    logger.WithComponent("watcher"),
	}

	return fw, nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddFile watches a single file. The parent directory is watched and its
// events are filtered to the file's name, so the watch survives editors
// that save by renaming a new file over the old one.
func (fw *FileWatcher) AddFile(path string) error {
	abs, err := cleanPath(path)
	if err != nil {
		return err
	}

	if err := fw.watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.NewWatchError(errors.ErrCodeWatchSetup, "watching file", err).WithPath(path)
	}

	fw.mutex.Lock()
	fw.files[abs] = struct{}{}
	fw.mutex.Unlock()
	return nil
}

// AddRecursive adds a directory and all subdirectories to watch.
// Directories created later are added as they appear. Subdirectories that
// cannot be watched are logged and skipped.
func (fw *FileWatcher) AddRecursive(root string) error {
	abs, err := cleanPath(root)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return errors.NewWatchError(errors.ErrCodeWatchSetup, "watching directory", err).WithPath(root)
	}
	if !info.IsDir() {
		return errors.NewWatchError(errors.ErrCodeWatchSetup, "not a directory", nil).WithPath(root)
	}

	if err := fw.watcher.Add(abs); err != nil {
		return errors.NewWatchError(errors.ErrCodeWatchSetup, "watching directory", err).WithPath(root)
	}

	fw.mutex.Lock()
	fw.trees = append(fw.trees, abs)
	fw.mutex.Unlock()

	fw.addSubdirs(context.Background(), abs)
	return nil
}

func (fw *FileWatcher) addSubdirs(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fw.logger.Warn(ctx, err, "skipping unreadable path", "path", path)
			return nil
		}
		if !d.IsDir() || path == dir {
			return nil
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn(ctx, err, "skipping directory", "path", path)
			return filepath.SkipDir
		}
		return nil
	})
}

func cleanPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewWatchError(errors.ErrCodeWatchSetup, "resolving path", err).WithPath(path)
	}
	return abs, nil
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Start debouncer
	go fw.debouncer.start(ctx)

	// Start event processor
	go fw.processEvents(ctx)

	// Start main watcher loop
	go fw.watchLoop(ctx)

	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, errors.NewWatchError(errors.ErrCodeWatchEvent, "watch error", err), "file watcher error")
		}
	}
}

// watched reports whether path is a watched file or lies in a watched tree.
func (fw *FileWatcher) watched(path string) (ok bool, inTree bool) {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()

	for _, root := range fw.trees {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true, true
		}
	}
	_, ok = fw.files[path]
	return ok, false
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	ok, inTree := fw.watched(path)
	if !ok {
		return
	}

	// Apply filters
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(path) {
			return
		}
	}

	// Get file info
	info, err := os.Stat(path)
	var modTime time.Time
	var size int64

	if err == nil {
		modTime = info.ModTime()
		size = info.Size()
		if inTree && info.IsDir() && event.Has(fsnotify.Create) {
			if err := fw.watcher.Add(path); err != nil {
				fw.logger.Warn(ctx, err, "skipping new directory", "path", path)
			} else {
				fw.addSubdirs(ctx, path)
			}
		}
	}

	changeEvent := ChangeEvent{
		Type:    convertOp(event.Op),
		Path:    path,
		ModTime: modTime,
		Size:    size,
	}
	fw.logger.Debug(ctx, "file changed", "path", path, "type", changeEvent.Type.String())

	// Send to debouncer
	select {
	case fw.debouncer.events <- changeEvent:
	case <-ctx.Done():
	}
}

func convertOp(op fsnotify.Op) EventType {
	var t EventType
	if op.Has(fsnotify.Create) {
		t |= EventTypeCreated
	}
	if op.Has(fsnotify.Write) {
		t |= EventTypeModified
	}
	if op.Has(fsnotify.Remove) {
		t |= EventTypeDeleted
	}
	if op.Has(fsnotify.Rename) {
		t |= EventTypeRenamed
	}
	if op.Has(fsnotify.Chmod) {
		t |= EventTypeChmod
	}
	return t
}

// processEvents runs handlers one batch at a time, so handlers never
// overlap.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					// Log error but continue processing
					fw.logger.Error(ctx, err, "file watcher handler error", "events", len(events))
				}
			}
		}
	}
}

// Debouncer implementation
func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.Add(event)
		}
	}
}

// Add merges event into the pending batch and re-arms the timer.
func (d *Debouncer) Add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if prev, ok := d.pending[event.Path]; ok {
		event.Type |= prev.Type
	}
	d.pending[event.Path] = event

	d.arm()
}

// arm must be called with d.mutex held.
func (d *Debouncer) arm() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.flush(gen)
	})
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
}

func (d *Debouncer) flush(gen uint64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// A newer event re-armed the timer after this one fired.
	if gen != d.gen || len(d.pending) == 0 {
		return
	}

	events := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
		d.pending = make(map[string]ChangeEvent)
	default:
		// Consumer busy: keep the batch pending and try again later.
		d.arm()
	}
}

// NoEditorTempFilter drops editor swap and backup files.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, ".#"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return false
	}
	return true
}

// NoGitFilter drops paths inside a .git directory.
func NoGitFilter(path string) bool {
	sep := string(filepath.Separator)
	return !strings.Contains(path, sep+".git"+sep) && !strings.HasPrefix(path, ".git"+sep)
}
