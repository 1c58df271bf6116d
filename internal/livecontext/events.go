// Package livecontext keeps a bounded, time-windowed record of recent
// editing activity and answers point-in-time snapshot queries used to
// enrich AI requests.
package livecontext

import (
	"fmt"
	"time"
)

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// String renders the range as 1-based lines, the way editors display it.
func (r Range) String() string {
	if r.Start.Line == r.End.Line {
		return fmt.Sprintf("line %d", r.Start.Line+1)
	}
	return fmt.Sprintf("lines %d-%d", r.Start.Line+1, r.End.Line+1)
}

// TextChange is one replacement inside a document.
type TextChange struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// EditEvent is one content-change notification. Immutable once buffered.
type EditEvent struct {
	ID        string       `json:"id"`
	File      string       `json:"file"`
	Language  string       `json:"language"`
	Timestamp time.Time    `json:"timestamp"`
	Changes   []TextChange `json:"changes"`
}

// SaveEvent records a document save.
type SaveEvent struct {
	File      string    `json:"file"`
	Timestamp time.Time `json:"timestamp"`
}

// SelectionEvent records a selection in a document.
type SelectionEvent struct {
	File      string    `json:"file"`
	Selection Range     `json:"selection"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Document identifies an open document.
type Document struct {
	File     string `json:"file"`
	Language string `json:"language"`
}

// ChangeNotification is what the host delivers on a content change.
// Timestamps are assigned by the buffer on ingestion.
type ChangeNotification struct {
	File     string       `json:"file"`
	Language string       `json:"language"`
	Changes  []TextChange `json:"changes"`
}

// SelectionNotification is what the host delivers on a selection change.
type SelectionNotification struct {
	File      string `json:"file"`
	Selection Range  `json:"selection"`
	Text      string `json:"text,omitempty"`
}

// Host is the editor collaborator. Each On* method registers a handler and
// returns a function that removes it.
type Host interface {
	OnDocumentChanged(func(ChangeNotification)) (unsubscribe func())
	OnActiveEditorChanged(func(file string)) (unsubscribe func())
	OnDocumentSaved(func(file string)) (unsubscribe func())
	OnSelectionChanged(func(SelectionNotification)) (unsubscribe func())
	OpenDocuments() []Document
}
