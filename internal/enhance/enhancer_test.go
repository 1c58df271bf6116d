package enhance

import (
	"context"
	"errors"
	"testing"

	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	got      knowledge.EnhanceRequest
	response *knowledge.EnhancedContext
	err      error
	during   func()
}

func (f *fakeService) EnhanceContext(ctx context.Context, req knowledge.EnhanceRequest) (*knowledge.EnhancedContext, error) {
	f.got = req
	if f.during != nil {
		f.during()
	}
	return f.response, f.err
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, kind journal.Kind, level, query, file string) (*journal.Entry, error) {
	args := m.Called(ctx, kind, level, query, file)
	entry, _ := args.Get(0).(*journal.Entry)
	return entry, args.Error(1)
}

func newState() *livecontext.Buffer {
	return livecontext.NewBuffer(livecontext.Options{})
}

func TestEnhanceSendsSnapshotAndRenders(t *testing.T) {
	state := newState()
	state.IngestChange(livecontext.ChangeNotification{File: "/w/auth.ts", Language: "typescript"})
	state.SetCurrentFile("/w/auth.ts")

	svc := &fakeService{response: &knowledge.EnhancedContext{
		RelevantPatterns: []string{"JWT authentication", "Express middleware"},
		CurrentBranch:    "main",
	}}
	rec := &MockRecorder{}
	rec.On("Record", mock.Anything, journal.KindEnhancement, "standard", authPrompt, "/w/auth.ts").
		Return(&journal.Entry{}, nil).Once()

	e := New(Options{Service: svc, State: state, Recorder: rec, WorkspaceRoot: "/w", Level: LevelStandard})
	res, err := e.Enhance(context.Background(), authPrompt)
	require.NoError(t, err)

	assert.Equal(t, authPrompt, svc.got.Query)
	assert.Equal(t, "/w/auth.ts", svc.got.CurrentFile)
	assert.Equal(t, "/w", svc.got.WorkspaceRoot)
	assert.Len(t, svc.got.RecentChanges, 1)

	assert.Equal(t, LevelStandard, res.Level)
	assert.Contains(t, res.Prompt, "JWT authentication")
	assert.Equal(t, "main", res.Branch)
	rec.AssertExpectations(t)
}

func TestEnhanceRereadsStateAfterServiceCall(t *testing.T) {
	state := newState()
	state.SetCurrentFile("/w/before.ts")

	svc := &fakeService{response: &knowledge.EnhancedContext{}}
	svc.during = func() {
		state.SetCurrentFile("/w/after.ts")
		state.IngestSelection(livecontext.SelectionNotification{
			File:      "/w/after.ts",
			Selection: livecontext.Range{Start: livecontext.Position{Line: 0}, End: livecontext.Position{Line: 1}},
			Text:      "const token = sign(user)",
		})
	}

	e := New(Options{Service: svc, State: state, WorkspaceRoot: "/w"})
	res, err := e.Enhance(context.Background(), "explain")
	require.NoError(t, err)

	assert.Equal(t, "/w/before.ts", svc.got.CurrentFile)
	assert.Equal(t, "/w/after.ts", res.File)
	assert.Contains(t, res.Prompt, "File: /w/after.ts")
	assert.Contains(t, res.Prompt, "const token = sign(user)")
	assert.Contains(t, res.Prompt, "lines 1-2")
}

func TestEnhancePropagatesServiceErrors(t *testing.T) {
	svc := &fakeService{err: errors.New("connection refused")}
	rec := &MockRecorder{}

	e := New(Options{Service: svc, State: newState(), Recorder: rec})
	_, err := e.Enhance(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnhanceIgnoresJournalFailure(t *testing.T) {
	svc := &fakeService{response: &knowledge.EnhancedContext{}}
	rec := &MockRecorder{}
	rec.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("disk full"))

	e := New(Options{Service: svc, State: newState(), Recorder: rec, Level: LevelMinimal})
	res, err := e.Enhance(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, LevelMinimal, res.Level)
}

func TestEnhanceFallsBackToGitBranch(t *testing.T) {
	root := t.TempDir()
	writeHead(t, root, "ref: refs/heads/develop\n")

	svc := &fakeService{response: &knowledge.EnhancedContext{}}
	e := New(Options{Service: svc, State: newState(), WorkspaceRoot: root, Level: LevelStandard})

	res, err := e.EnhanceAt(context.Background(), "q", LevelStandard)
	require.NoError(t, err)
	assert.Equal(t, "develop", res.Branch)
	assert.Contains(t, res.Prompt, "Branch: develop")
}

func TestNewDefaultsToMaximum(t *testing.T) {
	e := New(Options{Service: &fakeService{}, State: newState()})
	assert.Equal(t, LevelMaximum, e.Level())
}
