package bridge

import (
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/go-playground/validator/v10"
)

// Frame types sent by editor plugins over /ws.
const (
	FrameChange    = "change"
	FrameSave      = "save"
	FrameFocus     = "focus"
	FrameSelection = "selection"
	FrameOpen      = "open"
	FrameClose     = "close"
	FrameError     = "error"
)

// Frame is one editor notification. File is required for every type;
// an empty Language is derived from the file name.
type Frame struct {
	Type      string                   `json:"type" validate:"required,oneof=change save focus selection open close"`
	File      string                   `json:"file" validate:"required"`
	Language  string                   `json:"language,omitempty"`
	Changes   []livecontext.TextChange `json:"changes,omitempty"`
	Selection *livecontext.Range       `json:"selection,omitempty"`
	Text      string                   `json:"text,omitempty"`
}

// ErrorFrame is sent back when an incoming frame is rejected.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

var frameValidate = validator.New()

func (f *Frame) language() string {
	if f.Language != "" {
		return f.Language
	}
	return livecontext.LanguageForFile(f.File)
}
