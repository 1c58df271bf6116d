package livecontext

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// ActivityCounts are event totals over the fixed activity window.
type ActivityCounts struct {
	Changes int `json:"changes"`
	Saves   int `json:"saves"`
}

// Snapshot is a derived, point-in-time view of recent activity. It is
// never stored; every call recomputes it.
type Snapshot struct {
	RecentChanges    []EditEvent    `json:"recentChanges"`
	CurrentFocusFile string         `json:"currentFocusFile"`
	ActiveLanguages  []string       `json:"activeLanguages"`
	ActivityCounts   ActivityCounts `json:"activityCounts"`
	InferredPatterns []string       `json:"inferredPatterns"`
}

// Snapshot returns the edits newer than window (the configured recent
// window when window <= 0), activity counts over the fixed activity window,
// the languages of the host's open documents and inferred patterns.
// It does not modify the buffer.
func (b *Buffer) Snapshot(window time.Duration) Snapshot {
	if window <= 0 {
		window = b.opts.RecentWindow
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(window)
}

// SnapshotMinutes is Snapshot with the window given in minutes.
func (b *Buffer) SnapshotMinutes(minutes int) Snapshot {
	return b.Snapshot(time.Duration(minutes) * time.Minute)
}

func (b *Buffer) snapshotLocked(window time.Duration) Snapshot {
	now := b.opts.Clock()
	recentCutoff := now.Add(-window)
	activityCutoff := now.Add(-b.opts.ActivityWindow)

	recent := b.changes.Filter(func(e EditEvent) bool {
		return e.Timestamp.After(recentCutoff)
	})
	if recent == nil {
		recent = []EditEvent{}
	}

	counts := ActivityCounts{
		Changes: len(b.changes.Filter(func(e EditEvent) bool { return e.Timestamp.After(activityCutoff) })),
		Saves:   len(b.saves.Filter(func(s SaveEvent) bool { return s.Timestamp.After(activityCutoff) })),
	}

	languages := b.activeLanguagesLocked()

	return Snapshot{
		RecentChanges:    recent,
		CurrentFocusFile: b.currentFile,
		ActiveLanguages:  languages,
		ActivityCounts:   counts,
		InferredPatterns: InferPatterns(languages, lo.Map(recent, func(e EditEvent, _ int) string { return e.File })),
	}
}

// activeLanguagesLocked collects the languages of every open document.
func (b *Buffer) activeLanguagesLocked() []string {
	if b.host == nil {
		return []string{}
	}
	langs := lo.Uniq(lo.FilterMap(b.host.OpenDocuments(), func(d Document, _ int) (string, bool) {
		return d.Language, d.Language != ""
	}))
	sort.Strings(langs)
	return langs
}
