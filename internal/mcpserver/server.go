// Package mcpserver exposes provider detection and live context as MCP
// tools so agents can pull enhanced prompts over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Backend answers tool calls.
type Backend interface {
	Providers(ctx context.Context) ([]provider.ProviderDescriptor, error)
	Snapshot(ctx context.Context, minutes int) (*livecontext.Snapshot, error)
	Enhance(ctx context.Context, prompt, level string) (*enhance.Result, error)
}

type toolEntry struct {
	def     mcp.Tool
	handler func(*handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"providers_detect": {
		def: mcp.NewTool("providers_detect",
			mcp.WithDescription("List the AI assistant extensions installed in the user's editors, with their capabilities."),
			mcp.WithString("query", mcp.Description("Optional fuzzy filter on display name or extension id")),
		),
		handler: func(h *handlers) server.ToolHandlerFunc { return h.detect },
	},
	"context_snapshot": {
		def: mcp.NewTool("context_snapshot",
			mcp.WithDescription("Summarize recent editing activity: recent changes, focused file, active languages and inferred work patterns."),
			mcp.WithNumber("minutes", mcp.Description("Recent-changes window in minutes (default 10)")),
		),
		handler: func(h *handlers) server.ToolHandlerFunc { return h.snapshot },
	},
	"context_enhance": {
		def: mcp.NewTool("context_enhance",
			mcp.WithDescription("Enrich a prompt with project knowledge and the user's current editor state."),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("The prompt to enhance")),
			mcp.WithString("level", mcp.Description("minimal, standard or maximum (default: configured level)")),
		),
		handler: func(h *handlers) server.ToolHandlerFunc { return h.enhance },
	},
}

// ToolNames lists the registered tools.
func ToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// New creates the MCP server.
func New(backend Backend, version string, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer("ctxbridge", version, server.WithToolCapabilities(true))
	h := newHandlers(backend, logger)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves over stdio until stdin closes.
func Run(backend Backend, version string, logger *zap.Logger) error {
	return server.ServeStdio(New(backend, version, logger))
}

type handlers struct {
	backend Backend
	logger  *zap.Logger
}

func newHandlers(backend Backend, logger *zap.Logger) *handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &handlers{backend: backend, logger: logger}
}

type detectArgs struct {
	Query string `json:"query"`
}

type snapshotArgs struct {
	Minutes int `json:"minutes"`
}

type enhanceArgs struct {
	Prompt string `json:"prompt"`
	Level  string `json:"level"`
}

func (h *handlers) detect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[detectArgs](req)
	if err != nil {
		return errorResult(bridgeerrors.NewInvalidRequest(err.Error())), nil
	}
	descs, err := h.backend.Providers(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"providers": provider.Filter(descs, args.Query)})
}

func (h *handlers) snapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[snapshotArgs](req)
	if err != nil {
		return errorResult(bridgeerrors.NewInvalidRequest(err.Error())), nil
	}
	if args.Minutes < 0 {
		return errorResult(bridgeerrors.NewInvalidRequest("minutes must not be negative")), nil
	}
	snap, err := h.backend.Snapshot(ctx, args.Minutes)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(snap)
}

func (h *handlers) enhance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[enhanceArgs](req)
	if err != nil {
		return errorResult(bridgeerrors.NewInvalidRequest(err.Error())), nil
	}
	if args.Prompt == "" {
		return errorResult(bridgeerrors.NewInvalidRequest("prompt is required")), nil
	}
	res, err := h.backend.Enhance(ctx, args.Prompt, args.Level)
	if err != nil {
		h.logger.Warn("context_enhance failed", zap.Error(err))
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(res)
}

func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// errorResult renders err as a structured tool error. Details of
// internal errors are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    bridgeerrors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}
	var bErr *bridgeerrors.BridgeError
	if errors.As(err, &bErr) && bErr.Code != bridgeerrors.ErrInternal {
		errorObj["code"] = bErr.Code
		errorObj["message"] = bErr.Message
		errorObj["status"] = bErr.Status
		if bErr.Details != nil {
			errorObj["details"] = bErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}
