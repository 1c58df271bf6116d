package livecontext

import (
	"sync"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/metrics"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Defaults for Options.
const (
	DefaultChangeCapacity    = 100
	DefaultSaveCapacity      = 50
	DefaultSelectionCapacity = 20
	DefaultRecentWindow      = 10 * time.Minute
	DefaultActivityWindow    = time.Hour
	DefaultTickInterval      = 5 * time.Second
)

// Options configures a Buffer. Zero values select the defaults.
type Options struct {
	ChangeCapacity    int
	SaveCapacity      int
	SelectionCapacity int
	RecentWindow      time.Duration
	ActivityWindow    time.Duration
	TickInterval      time.Duration

	// Clock returns the current time; defaults to time.Now.
	Clock func() time.Time

	Logger *zap.Logger

	// OnTick receives a snapshot every TickInterval while tracking.
	OnTick func(Snapshot)

	// OnChange is called for every change delivered by the host.
	OnChange func(EditEvent)

	// OnSaveWithEdits is called when a saved file has buffered edits.
	OnSaveWithEdits func(file string, edits []EditEvent)
}

func (o Options) withDefaults() Options {
	if o.ChangeCapacity <= 0 {
		o.ChangeCapacity = DefaultChangeCapacity
	}
	if o.SaveCapacity <= 0 {
		o.SaveCapacity = DefaultSaveCapacity
	}
	if o.SelectionCapacity <= 0 {
		o.SelectionCapacity = DefaultSelectionCapacity
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = DefaultRecentWindow
	}
	if o.ActivityWindow <= 0 {
		o.ActivityWindow = DefaultActivityWindow
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Buffer is the live context buffer. It is either tracking (subscribed to
// a Host) or stopped. All state is guarded by one mutex so host handlers,
// the ticker and snapshot readers are serialized.
type Buffer struct {
	opts   Options
	logger *zap.Logger

	mu          sync.Mutex
	tracking    bool
	host        Host
	unsubscribe []func()
	stopTicker  chan struct{}
	tickerDone  chan struct{}

	changes     *Ring[EditEvent]
	saves       *Ring[SaveEvent]
	selections  *Ring[SelectionEvent]
	currentFile string
}

// NewBuffer creates a stopped buffer.
func NewBuffer(opts Options) *Buffer {
	opts = opts.withDefaults()
	return &Buffer{
		opts:       opts,
		logger:     opts.Logger,
		changes:    NewRing[EditEvent](opts.ChangeCapacity),
		saves:      NewRing[SaveEvent](opts.SaveCapacity),
		selections: NewRing[SelectionEvent](opts.SelectionCapacity),
	}
}

// Start subscribes to the host's four notification streams and starts the
// periodic ticker. Starting a tracking buffer is a no-op.
func (b *Buffer) Start(host Host) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tracking {
		return
	}
	b.tracking = true
	b.host = host

	b.unsubscribe = []func(){
		host.OnDocumentChanged(b.handleChange),
		host.OnActiveEditorChanged(b.handleActiveEditor),
		host.OnDocumentSaved(b.handleSave),
		host.OnSelectionChanged(b.handleSelection),
	}

	b.stopTicker = make(chan struct{})
	b.tickerDone = make(chan struct{})
	go b.tickLoop(b.stopTicker, b.tickerDone)

	b.logger.Info("live context tracking started", zap.Duration("interval", b.opts.TickInterval))
}

// Stop unsubscribes from the host and cancels the ticker. Events delivered
// after Stop are ignored.
func (b *Buffer) Stop() {
	b.mu.Lock()
	if !b.tracking {
		b.mu.Unlock()
		return
	}
	b.tracking = false
	unsubs := b.unsubscribe
	b.unsubscribe = nil
	close(b.stopTicker)
	done := b.tickerDone
	b.mu.Unlock()

	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
	<-done

	b.logger.Info("live context tracking stopped")
}

// Tracking reports whether the buffer is subscribed to a host.
func (b *Buffer) Tracking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracking
}

func (b *Buffer) tickLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.tick()
		}
	}
}

func (b *Buffer) tick() {
	b.mu.Lock()
	if !b.tracking {
		b.mu.Unlock()
		return
	}
	snap := b.snapshotLocked(b.opts.RecentWindow)
	b.mu.Unlock()

	if b.opts.OnTick != nil {
		b.opts.OnTick(snap)
	}
}

// IngestChange appends an edit event stamped with the current time and
// returns it. The oldest event is evicted once the list is full.
func (b *Buffer) IngestChange(n ChangeNotification) EditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingestChangeLocked(n)
}

func (b *Buffer) ingestChangeLocked(n ChangeNotification) EditEvent {
	changes := make([]TextChange, len(n.Changes))
	copy(changes, n.Changes)

	event := EditEvent{
		ID:        ulid.Make().String(),
		File:      n.File,
		Language:  n.Language,
		Timestamp: b.opts.Clock(),
		Changes:   changes,
	}
	if b.changes.Push(event) {
		metrics.EventEvicted(metrics.KindChange)
	}
	metrics.EventIngested(metrics.KindChange)
	metrics.SetBuffered(metrics.KindChange, b.changes.Len())
	return event
}

// IngestSave records a save of file.
func (b *Buffer) IngestSave(file string) SaveEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingestSaveLocked(file)
}

func (b *Buffer) ingestSaveLocked(file string) SaveEvent {
	event := SaveEvent{File: file, Timestamp: b.opts.Clock()}
	if b.saves.Push(event) {
		metrics.EventEvicted(metrics.KindSave)
	}
	metrics.EventIngested(metrics.KindSave)
	metrics.SetBuffered(metrics.KindSave, b.saves.Len())
	return event
}

// IngestSelection records a selection.
func (b *Buffer) IngestSelection(n SelectionNotification) SelectionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingestSelectionLocked(n)
}

func (b *Buffer) ingestSelectionLocked(n SelectionNotification) SelectionEvent {
	event := SelectionEvent{
		File:      n.File,
		Selection: n.Selection,
		Text:      n.Text,
		Timestamp: b.opts.Clock(),
	}
	if b.selections.Push(event) {
		metrics.EventEvicted(metrics.KindSelection)
	}
	metrics.EventIngested(metrics.KindSelection)
	metrics.SetBuffered(metrics.KindSelection, b.selections.Len())
	return event
}

// SetCurrentFile overwrites the focus pointer.
func (b *Buffer) SetCurrentFile(file string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentFile = file
}

// CurrentFile returns the focus pointer.
func (b *Buffer) CurrentFile() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentFile
}

// ChangesForFile returns every buffered edit of file, oldest first,
// regardless of age.
func (b *Buffer) ChangesForFile(file string) []EditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes.Filter(func(e EditEvent) bool { return e.File == file })
}

// Changes returns all buffered edits, oldest first.
func (b *Buffer) Changes() []EditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes.Items()
}

// Saves returns all buffered saves, oldest first.
func (b *Buffer) Saves() []SaveEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves.Items()
}

// Selections returns all buffered selections, oldest first.
func (b *Buffer) Selections() []SelectionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selections.Items()
}

// LatestSelection returns the newest selection in file.
func (b *Buffer) LatestSelection(file string) (SelectionEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	matches := b.selections.Filter(func(s SelectionEvent) bool { return s.File == file })
	if len(matches) == 0 {
		return SelectionEvent{}, false
	}
	return matches[len(matches)-1], true
}

// Host handlers. Each checks the tracking flag under the lock so that a
// notification racing with Stop is dropped.

func (b *Buffer) handleChange(n ChangeNotification) {
	b.mu.Lock()
	if !b.tracking {
		b.mu.Unlock()
		return
	}
	event := b.ingestChangeLocked(n)
	b.mu.Unlock()

	if b.opts.OnChange != nil {
		b.opts.OnChange(event)
	}
}

func (b *Buffer) handleActiveEditor(file string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tracking {
		return
	}
	b.currentFile = file
	metrics.EventIngested(metrics.KindFocus)
}

func (b *Buffer) handleSave(file string) {
	b.mu.Lock()
	if !b.tracking {
		b.mu.Unlock()
		return
	}
	b.ingestSaveLocked(file)
	edits := b.changes.Filter(func(e EditEvent) bool { return e.File == file })
	b.mu.Unlock()

	if len(edits) > 0 && b.opts.OnSaveWithEdits != nil {
		b.opts.OnSaveWithEdits(file, edits)
	}
}

func (b *Buffer) handleSelection(n SelectionNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tracking {
		return
	}
	b.ingestSelectionLocked(n)
}
