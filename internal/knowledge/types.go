package knowledge

import (
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
)

// EnhanceRequest asks the service for context relevant to a query.
type EnhanceRequest struct {
	Query         string                  `json:"query"`
	CurrentFile   string                  `json:"currentFile,omitempty"`
	WorkspaceRoot string                  `json:"workspaceRoot,omitempty"`
	RecentChanges []livecontext.EditEvent `json:"recentChanges"`
}

// EnhancedContext is the service's answer to an EnhanceRequest. Missing
// fields decode as empty.
type EnhancedContext struct {
	ProjectSummary    string   `json:"projectSummary"`
	RelevantDecisions []string `json:"relevantDecisions"`
	RelevantPatterns  []string `json:"relevantPatterns"`
	CurrentBranch     string   `json:"currentBranch"`
	Suggestions       []string `json:"suggestions"`
}

// ChangeRecord reports one buffered edit to the service.
type ChangeRecord struct {
	WorkspaceRoot string                `json:"workspaceRoot,omitempty"`
	Event         livecontext.EditEvent `json:"event"`
}

// Decision is an architectural or implementation decision worth
// remembering for later queries.
type Decision struct {
	WorkspaceRoot string    `json:"workspaceRoot,omitempty"`
	Text          string    `json:"text"`
	File          string    `json:"file,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ErrorReport describes a failure the service can learn from, such as a
// saved file whose edits preceded a diagnostic.
type ErrorReport struct {
	WorkspaceRoot string                  `json:"workspaceRoot,omitempty"`
	File          string                  `json:"file"`
	Message       string                  `json:"message,omitempty"`
	Edits         []livecontext.EditEvent `json:"edits"`
}

// LiveSnapshot publishes the periodic buffer snapshot.
type LiveSnapshot struct {
	WorkspaceRoot string               `json:"workspaceRoot,omitempty"`
	Snapshot      livecontext.Snapshot `json:"snapshot"`
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
