package extensions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"go.uber.org/zap"
)

// Host is the installed-extension collaborator: it snapshots the extension
// list and activates extensions by loading their entry point.
type Host struct {
	scanner *Scanner
	logger  *zap.Logger

	mu   sync.Mutex
	byID map[string]provider.ExtensionMetadata
}

// NewHost creates a Host backed by scanner and performs an initial scan.
func NewHost(scanner *Scanner, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{scanner: scanner, logger: logger}
	h.Refresh()
	return h
}

// Refresh rescans the extension directories and returns the new list.
func (h *Host) Refresh() []provider.ExtensionMetadata {
	exts := h.scanner.Scan()

	byID := make(map[string]provider.ExtensionMetadata, len(exts))
	for _, e := range exts {
		byID[e.ID] = e
	}

	h.mu.Lock()
	h.byID = byID
	h.mu.Unlock()

	h.logger.Debug("extension inventory refreshed", zap.Int("count", len(exts)))
	return exts
}

// Installed returns the last scanned extension list, sorted by id.
func (h *Host) Installed() []provider.ExtensionMetadata {
	out := h.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the metadata for id.
func (h *Host) Lookup(id string) (provider.ExtensionMetadata, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	meta, ok := h.byID[id]
	return meta, ok
}

// IsActive implements provider.Activator.
func (h *Host) IsActive(id string) bool {
	meta, ok := h.Lookup(id)
	return ok && meta.Active
}

// Activate implements provider.Activator. It re-reads the manifest and
// checks that the entry point can be loaded.
func (h *Host) Activate(ctx context.Context, id string) error {
	meta, ok := h.Lookup(id)
	if !ok {
		return bridgeerrors.NewNotFound("extension", id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := readManifest(meta.Path)
	if err != nil {
		return fmt.Errorf("failed to read manifest for %s: %w", id, err)
	}
	entry := m.entryPoint(meta.Path)
	if !entryLoadable(entry) {
		return fmt.Errorf("entry point %s for %s cannot be loaded", entry, id)
	}

	h.mu.Lock()
	meta.Active = true
	h.byID[id] = meta
	h.mu.Unlock()

	h.logger.Info("extension activated", zap.String("id", id))
	return nil
}

func (h *Host) snapshot() []provider.ExtensionMetadata {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]provider.ExtensionMetadata, 0, len(h.byID))
	for _, m := range h.byID {
		out = append(out, m)
	}
	return out
}
