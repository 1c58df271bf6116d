package enhance

import (
	"context"
	"fmt"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"go.uber.org/zap"
)

// ContextService fetches project context for a query.
type ContextService interface {
	EnhanceContext(ctx context.Context, req knowledge.EnhanceRequest) (*knowledge.EnhancedContext, error)
}

// LiveState is the part of the live context buffer an Enhancer reads.
type LiveState interface {
	Snapshot(window time.Duration) livecontext.Snapshot
	CurrentFile() string
	LatestSelection(file string) (livecontext.SelectionEvent, bool)
}

// Recorder journals enhancements.
type Recorder interface {
	Record(ctx context.Context, kind journal.Kind, level, query, file string) (*journal.Entry, error)
}

// Result is an enhanced prompt plus what went into it.
type Result struct {
	Prompt  string                    `json:"prompt"`
	Level   Level                     `json:"level"`
	File    string                    `json:"file,omitempty"`
	Branch  string                    `json:"branch,omitempty"`
	Context knowledge.EnhancedContext `json:"context"`
}

// Enhancer builds enhanced prompts.
type Enhancer struct {
	service   ContextService
	state     LiveState
	recorder  Recorder
	workspace string
	level     Level
	logger    *zap.Logger
}

// Options configures an Enhancer. Recorder may be nil.
type Options struct {
	Service       ContextService
	State         LiveState
	Recorder      Recorder
	WorkspaceRoot string
	Level         Level
	Logger        *zap.Logger
}

// New creates an Enhancer.
func New(opts Options) *Enhancer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	level := opts.Level
	if level == "" {
		level = LevelMaximum
	}
	return &Enhancer{
		service:   opts.Service,
		state:     opts.State,
		recorder:  opts.Recorder,
		workspace: opts.WorkspaceRoot,
		level:     level,
		logger:    logger,
	}
}

// Level returns the default level.
func (e *Enhancer) Level() Level {
	return e.level
}

// Enhance enhances prompt at the default level.
func (e *Enhancer) Enhance(ctx context.Context, prompt string) (*Result, error) {
	return e.EnhanceAt(ctx, prompt, e.level)
}

// EnhanceAt enhances prompt at level. A knowledge service failure is
// returned; a journaling failure is only logged.
func (e *Enhancer) EnhanceAt(ctx context.Context, prompt string, level Level) (*Result, error) {
	snap := e.state.Snapshot(0)

	enhanced, err := e.service.EnhanceContext(ctx, knowledge.EnhanceRequest{
		Query:         prompt,
		CurrentFile:   snap.CurrentFocusFile,
		WorkspaceRoot: e.workspace,
		RecentChanges: snap.RecentChanges,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get enhanced context: %w", err)
	}

	// The buffer may have moved on while the request was in flight.
	file := e.state.CurrentFile()
	material := Material{
		Context:       *enhanced,
		CurrentFile:   file,
		WorkspaceRoot: e.workspace,
	}
	if enhanced.CurrentBranch == "" {
		material.Branch = GitBranch(e.workspace)
	}
	if sel, ok := e.state.LatestSelection(file); ok && sel.Text != "" {
		material.SelectionRange = sel.Selection.String()
		material.SelectionText = sel.Text
	}

	result := &Result{
		Prompt:  Render(level, prompt, material),
		Level:   level,
		File:    file,
		Branch:  material.branch(),
		Context: *enhanced,
	}

	if e.recorder != nil {
		if _, err := e.recorder.Record(ctx, journal.KindEnhancement, level.String(), prompt, file); err != nil {
			e.logger.Warn("failed to journal enhancement", zap.Error(err))
		}
	}

	e.logger.Debug("enhanced prompt",
		zap.String("level", level.String()),
		zap.String("file", file),
		zap.Int("patterns", len(enhanced.RelevantPatterns)))
	return result, nil
}
