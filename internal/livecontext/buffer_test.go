package livecontext

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeHost lets tests emit host notifications directly.
type fakeHost struct {
	Emitter
	Documents
}

func newFakeHost(docs ...Document) *fakeHost {
	h := &fakeHost{}
	for _, d := range docs {
		h.Open(d.File, d.Language)
	}
	return h
}

func newTestBuffer(clock *fakeClock, mutate ...func(*Options)) *Buffer {
	opts := Options{Clock: clock.Now, Logger: zap.NewNop(), TickInterval: time.Hour}
	for _, m := range mutate {
		m(&opts)
	}
	return NewBuffer(opts)
}

func change(file string) ChangeNotification {
	return ChangeNotification{
		File:     file,
		Language: LanguageForFile(file),
		Changes:  []TextChange{{Range: Range{}, Text: "x"}},
	}
}

func TestIngestChangeEvictsOldestFirst(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)

	for i := 0; i < 101; i++ {
		b.IngestChange(change(fmt.Sprintf("/w/file%d.go", i)))
		clock.Advance(time.Second)
	}

	got := b.Changes()
	require.Len(t, got, DefaultChangeCapacity)
	assert.Equal(t, "/w/file1.go", got[0].File, "the first event was evicted")
	assert.Equal(t, "/w/file100.go", got[99].File)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestSaveAndSelectionCapacities(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)

	for i := 0; i < 60; i++ {
		b.IngestSave(fmt.Sprintf("/w/%d.go", i))
	}
	for i := 0; i < 25; i++ {
		b.IngestSelection(SelectionNotification{File: fmt.Sprintf("/w/%d.go", i)})
	}

	saves := b.Saves()
	require.Len(t, saves, DefaultSaveCapacity)
	assert.Equal(t, "/w/10.go", saves[0].File)

	selections := b.Selections()
	require.Len(t, selections, DefaultSelectionCapacity)
	assert.Equal(t, "/w/5.go", selections[0].File)
}

func TestCustomCapacities(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock, func(o *Options) { o.ChangeCapacity = 3 })
	for i := 0; i < 5; i++ {
		b.IngestChange(change(fmt.Sprintf("/w/%d.go", i)))
	}
	assert.Len(t, b.Changes(), 3)
}

func TestIngestedEventsAreCopies(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)

	n := change("/w/a.go")
	ev := b.IngestChange(n)
	n.Changes[0].Text = "mutated"

	assert.Equal(t, "x", b.Changes()[0].Changes[0].Text)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, clock.Now(), ev.Timestamp)
}

func TestSnapshotWindows(t *testing.T) {
	clock := newFakeClock()
	host := newFakeHost(
		Document{File: "/w/a.ts", Language: "typescript"},
		Document{File: "/w/b.py", Language: "python"},
		Document{File: "/w/c.ts", Language: "typescript"},
	)
	b := newTestBuffer(clock)
	b.Start(host)
	defer b.Stop()

	b.IngestChange(change("/w/old.go")) // 90 minutes before the snapshot
	b.IngestSave("/w/old.go")
	clock.Advance(40 * time.Minute)
	b.IngestChange(change("/w/mid.go")) // 50 minutes before
	clock.Advance(45 * time.Minute)
	b.IngestChange(change("/w/recent.tsx")) // 5 minutes before
	b.IngestSave("/w/recent.tsx")
	clock.Advance(5 * time.Minute)
	b.SetCurrentFile("/w/recent.tsx")

	snap := b.Snapshot(0)

	require.Len(t, snap.RecentChanges, 1)
	assert.Equal(t, "/w/recent.tsx", snap.RecentChanges[0].File)
	assert.Equal(t, ActivityCounts{Changes: 2, Saves: 1}, snap.ActivityCounts)
	assert.Equal(t, "/w/recent.tsx", snap.CurrentFocusFile)
	assert.Equal(t, []string{"python", "typescript"}, snap.ActiveLanguages)
	assert.Contains(t, snap.InferredPatterns, "React components")
	assert.Contains(t, snap.InferredPatterns, "Python development")

	// A wider recent window does not change the fixed activity window.
	wide := b.SnapshotMinutes(120)
	assert.Len(t, wide.RecentChanges, 3)
	assert.Equal(t, snap.ActivityCounts, wide.ActivityCounts)
}

func TestSnapshotWindowIsExclusive(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)

	b.IngestChange(change("/w/edge.go"))
	clock.Advance(10 * time.Minute)

	assert.Empty(t, b.SnapshotMinutes(10).RecentChanges)
	assert.Len(t, b.SnapshotMinutes(11).RecentChanges, 1)
}

func TestSnapshotIsNonDestructive(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)
	for i := 0; i < 5; i++ {
		b.IngestChange(change(fmt.Sprintf("/w/%d.go", i)))
	}
	before := b.Changes()

	first := b.Snapshot(0)
	second := b.Snapshot(0)

	assert.Equal(t, first, second)
	assert.Equal(t, before, b.Changes())
}

func TestSnapshotRepeatableWithRealClock(t *testing.T) {
	b := NewBuffer(Options{})
	b.Start(newFakeHost(Document{File: "/w/a.go", Language: "go"}))
	defer b.Stop()
	b.IngestChange(change("/w/a.go"))

	first := b.Snapshot(0)
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, first, b.Snapshot(0))
}

func TestSnapshotWithoutHost(t *testing.T) {
	b := newTestBuffer(newFakeClock())
	snap := b.Snapshot(0)
	assert.Empty(t, snap.ActiveLanguages)
	assert.NotNil(t, snap.RecentChanges)
	assert.Empty(t, snap.InferredPatterns)
}

func TestChangesForFileIgnoresWindow(t *testing.T) {
	clock := newFakeClock()
	b := newTestBuffer(clock)

	b.IngestChange(change("/w/a.go"))
	b.IngestChange(change("/w/b.go"))
	clock.Advance(3 * time.Hour)
	b.IngestChange(change("/w/a.go"))

	got := b.ChangesForFile("/w/a.go")
	assert.Len(t, got, 2)
	assert.Empty(t, b.ChangesForFile("/w/none.go"))
}

func TestStartIsIdempotentAndStopUnsubscribes(t *testing.T) {
	host := newFakeHost()
	b := newTestBuffer(newFakeClock())

	b.Start(host)
	b.Start(host)
	assert.True(t, b.Tracking())
	assert.Equal(t, 4, host.Subscribers())

	b.Stop()
	assert.False(t, b.Tracking())
	assert.Equal(t, 0, host.Subscribers())

	b.Stop() // no-op
}

func TestHandlersRouteHostEvents(t *testing.T) {
	host := newFakeHost()
	var forwarded []EditEvent
	var analyzed []string
	b := newTestBuffer(newFakeClock(), func(o *Options) {
		o.OnChange = func(e EditEvent) { forwarded = append(forwarded, e) }
		o.OnSaveWithEdits = func(file string, edits []EditEvent) {
			analyzed = append(analyzed, fmt.Sprintf("%s:%d", file, len(edits)))
		}
	})
	b.Start(host)
	defer b.Stop()

	host.EmitChange(change("/w/a.go"))
	host.EmitChange(change("/w/a.go"))
	host.EmitActiveEditor("/w/a.go")
	host.EmitSave("/w/a.go")
	host.EmitSave("/w/untouched.go")

	assert.Len(t, b.Changes(), 2)
	assert.Len(t, b.Saves(), 2)
	assert.Equal(t, "/w/a.go", b.CurrentFile())
	assert.Len(t, forwarded, 2)
	assert.Equal(t, []string{"/w/a.go:2"}, analyzed)
}

func TestEventsAfterStopAreIgnored(t *testing.T) {
	host := newFakeHost()
	b := newTestBuffer(newFakeClock())
	b.Start(host)
	b.IngestChange(change("/w/a.go"))
	b.Stop()

	before := b.Snapshot(0)

	b.handleChange(change("/w/late.go"))
	b.handleSave("/w/late.go")
	b.handleSelection(SelectionNotification{File: "/w/late.go"})
	b.handleActiveEditor("/w/late.go")

	assert.Equal(t, before, b.Snapshot(0))
	assert.Len(t, b.Changes(), 1)
	assert.Empty(t, b.Saves())
	assert.Empty(t, b.Selections())
	assert.Empty(t, b.CurrentFile())
}

func TestTickerDeliversSnapshots(t *testing.T) {
	ticks := make(chan Snapshot, 4)
	b := NewBuffer(Options{
		TickInterval: 10 * time.Millisecond,
		OnTick: func(s Snapshot) {
			select {
			case ticks <- s:
			default:
			}
		},
	})
	b.Start(newFakeHost())
	b.IngestChange(change("/w/a.go"))

	select {
	case snap := <-ticks:
		assert.NotNil(t, snap.RecentChanges)
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered")
	}
	b.Stop()
}

func TestLatestSelection(t *testing.T) {
	b := newTestBuffer(newFakeClock())
	b.IngestSelection(SelectionNotification{File: "/w/a.go", Selection: Range{Start: Position{Line: 1}, End: Position{Line: 4}}})
	b.IngestSelection(SelectionNotification{File: "/w/b.go"})
	b.IngestSelection(SelectionNotification{File: "/w/a.go", Selection: Range{Start: Position{Line: 9}, End: Position{Line: 9}}, Text: "x := 1"})

	sel, ok := b.LatestSelection("/w/a.go")
	require.True(t, ok)
	assert.Equal(t, "line 10", sel.Selection.String())
	assert.Equal(t, "x := 1", sel.Text)

	_, ok = b.LatestSelection("/w/none.go")
	assert.False(t, ok)
}
