// Package watcher turns filesystem activity in a workspace into editor
// notifications, for use when no editor bridge is connected.
package watcher

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Defaults for Options.
const (
	DefaultDebounce = 100 * time.Millisecond
	maxChangeText   = 8 << 10
)

// DefaultIgnorePatterns skips VCS metadata, dependencies and editor swap
// files.
var DefaultIgnorePatterns = []string{".git", "node_modules", ".idea", "*.swp", "*.tmp", "*~", "__pycache__"}

// Options configures a Host.
type Options struct {
	IgnorePatterns []string
	Debounce       time.Duration
	Logger         *zap.Logger
}

// Host is a livecontext.Host backed by fsnotify. A write becomes a
// whole-document change followed by a save, a create becomes a change, and
// the most recently written file becomes the active editor. It never emits
// selections.
type Host struct {
	livecontext.Emitter
	docs livecontext.Documents

	root     string
	ignore   []string
	debounce time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	running  bool
	active   string
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a host watching root recursively. Call Run to start it.
func New(root string, opts Options) (*Host, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	// Configured patterns extend the defaults, never replace them.
	opts.IgnorePatterns = lo.Uniq(append(append([]string{}, DefaultIgnorePatterns...), opts.IgnorePatterns...))
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace %s: %w", root, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Host{
		root:     abs,
		ignore:   opts.IgnorePatterns,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// Root returns the watched directory.
func (h *Host) Root() string {
	return h.root
}

// OpenDocuments returns every file changed since the host started.
func (h *Host) OpenDocuments() []livecontext.Document {
	return h.docs.OpenDocuments()
}

// Run watches until ctx is cancelled or Close is called.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	h.running = true
	h.mu.Unlock()

	if err := h.addRecursive(h.root); err != nil {
		return fmt.Errorf("watching %s: %w", h.root, err)
	}
	h.logger.Info("watching workspace", zap.String("root", h.root))

	pending := map[string]fsnotify.Op{}
	var order []string
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, path := range order {
			h.dispatch(path, pending[path])
		}
		pending = map[string]fsnotify.Op{}
		order = order[:0]
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
	}
	defer h.Close()

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case <-h.done:
			flush()
			return nil
		case event, ok := <-h.watcher.Events:
			if !ok {
				flush()
				return nil
			}
			if h.shouldIgnore(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := h.addRecursive(event.Name); err != nil {
						h.logger.Debug("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if _, seen := pending[event.Name]; !seen {
				order = append(order, event.Name)
			}
			pending[event.Name] |= event.Op

			if timer == nil {
				timer = time.NewTimer(h.debounce)
				timerC = timer.C
			} else {
				timer.Reset(h.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		case err, ok := <-h.watcher.Errors:
			if !ok {
				flush()
				return nil
			}
			h.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (h *Host) Close() error {
	var err error
	h.stopOnce.Do(func() {
		close(h.done)
		err = h.watcher.Close()
	})
	return err
}

func (h *Host) dispatch(path string, op fsnotify.Op) {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if _, err := os.Stat(path); err != nil {
			h.docs.Close(path)
			return
		}
	}
	if !op.Has(fsnotify.Write) && !op.Has(fsnotify.Create) {
		return
	}

	n, err := wholeDocumentChange(path)
	if err != nil {
		h.logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return
	}
	h.docs.Open(path, n.Language)
	h.EmitChange(n)

	if op.Has(fsnotify.Write) {
		h.setActive(path)
		h.EmitSave(path)
	}
}

func (h *Host) setActive(path string) {
	h.mu.Lock()
	changed := h.active != path
	h.active = path
	h.mu.Unlock()
	if changed {
		h.EmitActiveEditor(path)
	}
}

func wholeDocumentChange(path string) (livecontext.ChangeNotification, error) {
	info, err := os.Stat(path)
	if err != nil {
		return livecontext.ChangeNotification{}, err
	}
	if !info.Mode().IsRegular() {
		return livecontext.ChangeNotification{}, fmt.Errorf("not a regular file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return livecontext.ChangeNotification{}, err
	}

	lines := bytes.Count(data, []byte("\n"))
	text := data
	if len(text) > maxChangeText {
		text = text[:maxChangeText]
	}

	return livecontext.ChangeNotification{
		File:     path,
		Language: livecontext.LanguageForFile(path),
		Changes: []livecontext.TextChange{{
			Range: livecontext.Range{End: livecontext.Position{Line: lines}},
			Text:  string(text),
		}},
	}, nil
}

func (h *Host) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != h.root && h.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return h.watcher.Add(path)
	})
}

func (h *Host) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(h.root, path)
	if err != nil {
		rel = path
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, pattern := range h.ignore {
		for _, part := range parts {
			if part == pattern {
				return true
			}
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
