package extensions

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeExtension(t *testing.T, root, folder string, pkg map[string]any, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(pkg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), data, 0644))
	for _, f := range files {
		p := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("module.exports = {}"), 0644))
	}
	return dir
}

func TestScanNormalizesManifest(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "acme.helper-1.0.0", map[string]any{
		"name":        "helper",
		"publisher":   "acme",
		"displayName": "%ext.name%",
		"description": "AI pair programmer",
		"version":     "1.0.0",
		"keywords":    []string{"llm"},
		"categories":  []string{"Machine Learning"},
		"main":        "./out/extension",
		"contributes": map[string]any{
			"commands": []map[string]any{
				{"command": "helper.chat", "title": "Open Chat"},
				{"command": "helper.explain", "title": map[string]any{"value": "Explain"}},
			},
			"chatParticipants": []any{},
			"themes":           []any{},
		},
		"enabledApiProposals": []string{"inlineCompletionsAdditions"},
	}, "out/extension.js")
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme.helper-1.0.0", "package.nls.json"),
		[]byte(`{"ext.name": "Acme Helper"}`), 0644))

	exts := NewScanner([]string{root}, zap.NewNop()).Scan()
	require.Len(t, exts, 1)

	meta := exts[0]
	assert.Equal(t, "acme.helper", meta.ID)
	assert.Equal(t, "Acme Helper", meta.DisplayName)
	assert.Equal(t, "1.0.0", meta.Version)
	assert.True(t, meta.Active)
	assert.Equal(t, []provider.Command{
		{ID: "helper.chat", Title: "Open Chat"},
		{ID: "helper.explain", Title: "Explain"},
	}, meta.Commands)
	assert.ElementsMatch(t, []provider.ContributionKind{
		provider.ContributionChatParticipant,
		provider.ContributionCommands,
		provider.ContributionInlineCompletionProvider,
	}, meta.Contributions)

	got := provider.Detect(exts)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Capabilities, provider.CapabilityChat)
	assert.Contains(t, got[0].Capabilities, provider.CapabilityInlineCompletion)
}

func TestScanKeepsHighestVersion(t *testing.T) {
	root := t.TempDir()
	for _, v := range []string{"1.2.0", "1.10.0", "1.9.3", "not-a-version"} {
		writeExtension(t, root, "GitHub.copilot-"+v, map[string]any{
			"name": "copilot", "publisher": "GitHub", "version": v,
		})
	}

	exts := NewScanner([]string{root}, nil).Scan()
	require.Len(t, exts, 1)
	assert.Equal(t, "GitHub.copilot", exts[0].ID)
	assert.Equal(t, "1.10.0", exts[0].Version)
}

func TestScanSkipsBrokenAndObsolete(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "good.one-1.0.0", map[string]any{"name": "one", "publisher": "good"})
	writeExtension(t, root, "old.gone-0.1.0", map[string]any{"name": "gone", "publisher": "old"})
	writeExtension(t, root, "no.publisher-1.0.0", map[string]any{"name": "lonely"})

	broken := filepath.Join(root, "broken.ext-1.0.0")
	require.NoError(t, os.MkdirAll(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "package.json"), []byte("{not json"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty-dir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".obsolete"), []byte(`{"old.gone-0.1.0": true}`), 0644))

	exts := NewScanner([]string{root, filepath.Join(root, "missing")}, nil).Scan()
	require.Len(t, exts, 1)
	assert.Equal(t, "good.one", exts[0].ID)
	assert.True(t, exts[0].Active, "declarative extensions count as active")
}

func TestScanMergesDirectories(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeExtension(t, a, "x.one-1.0.0", map[string]any{"name": "one", "publisher": "x", "version": "1.0.0"})
	writeExtension(t, b, "x.one-2.0.0", map[string]any{"name": "one", "publisher": "x", "version": "2.0.0"})
	writeExtension(t, b, "x.two-1.0.0", map[string]any{"name": "two", "publisher": "x"})

	exts := NewScanner([]string{a, b}, nil).Scan()
	require.Len(t, exts, 2)
	assert.Equal(t, "x.one", exts[0].ID)
	assert.Equal(t, "2.0.0", exts[0].Version)
	assert.Equal(t, "x.two", exts[1].ID)
}

func TestHostActivation(t *testing.T) {
	root := t.TempDir()
	dir := writeExtension(t, root, "acme.lazy-1.0.0", map[string]any{
		"name": "lazy", "publisher": "acme", "main": "dist/main.js",
	})
	writeExtension(t, root, "acme.ready-1.0.0", map[string]any{
		"name": "ready", "publisher": "acme", "main": "main.js",
	}, "main.js")

	host := NewHost(NewScanner([]string{root}, nil), nil)
	ctx := context.Background()

	assert.True(t, host.IsActive("acme.ready"))
	assert.False(t, host.IsActive("acme.lazy"))
	assert.Error(t, host.Activate(ctx, "acme.lazy"))

	err := host.Activate(ctx, "missing.ext")
	assert.True(t, bridgeerrors.Is(err, bridgeerrors.ErrNotFound))

	// The entry point appears (e.g. after a build) and activation succeeds.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dist", "main.js"), []byte(""), 0644))
	require.NoError(t, host.Activate(ctx, "acme.lazy"))
	assert.True(t, host.IsActive("acme.lazy"))

	ids := []string{}
	for _, e := range host.Installed() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"acme.lazy", "acme.ready"}, ids)
}

func TestHostActivationCancelled(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "acme.x-1.0.0", map[string]any{"name": "x", "publisher": "acme", "main": "m.js"})
	host := NewHost(NewScanner([]string{root}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, host.Activate(ctx, "acme.x"), context.Canceled)
}

func TestDefaultDirs(t *testing.T) {
	dirs := DefaultDirs("/home/dev")
	assert.Contains(t, dirs, filepath.Join("/home/dev", ".vscode", "extensions"))
	assert.Contains(t, dirs, filepath.Join("/home/dev", ".cursor", "extensions"))
}
