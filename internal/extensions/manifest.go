package extensions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/samber/lo"
)

// manifest is the subset of an extension's package.json we read.
type manifest struct {
	Name                string                     `json:"name"`
	Publisher           string                     `json:"publisher"`
	DisplayName         string                     `json:"displayName"`
	Description         string                     `json:"description"`
	Version             string                     `json:"version"`
	Keywords            []string                   `json:"keywords"`
	Categories          []string                   `json:"categories"`
	Main                string                     `json:"main"`
	Browser             string                     `json:"browser"`
	EnabledAPIProposals []string                   `json:"enabledApiProposals"`
	Contributes         map[string]json.RawMessage `json:"contributes"`
}

type manifestCommand struct {
	Command string `json:"command"`
	Title   any    `json:"title"`
}

// ID returns the marketplace identifier, publisher.name.
func (m *manifest) ID() string {
	if m.Publisher == "" || m.Name == "" {
		return ""
	}
	return m.Publisher + "." + m.Name
}

func readManifest(dir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	m := &manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// entryPoint returns the absolute path of the code the editor would load,
// or "" for declarative extensions (themes, snippets, language packs).
func (m *manifest) entryPoint(dir string) string {
	entry := m.Main
	if entry == "" {
		entry = m.Browser
	}
	if entry == "" {
		return ""
	}
	return filepath.Join(dir, filepath.FromSlash(entry))
}

// loadNLS reads package.nls.json for %placeholder% resolution. Missing or
// malformed files yield an empty table.
func loadNLS(dir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, "package.nls.json"))
	if err != nil {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case map[string]any:
			if msg, ok := val["message"].(string); ok {
				out[k] = msg
			}
		}
	}
	return out
}

func localize(s string, nls map[string]string) string {
	if len(s) > 2 && strings.HasPrefix(s, "%") && strings.HasSuffix(s, "%") {
		if v, ok := nls[s[1:len(s)-1]]; ok {
			return v
		}
	}
	return s
}

// normalize converts a manifest into provider metadata. Unknown
// contribution keys are dropped; malformed command lists are ignored.
func (m *manifest) normalize(dir string) provider.ExtensionMetadata {
	nls := loadNLS(dir)

	meta := provider.ExtensionMetadata{
		ID:          m.ID(),
		DisplayName: localize(m.DisplayName, nls),
		Description: localize(m.Description, nls),
		Keywords:    m.Keywords,
		Categories:  m.Categories,
		Version:     m.Version,
		Path:        dir,
	}

	keys := m.Contributions()
	kinds := make([]provider.ContributionKind, 0, len(keys))
	for _, key := range keys {
		if kind, ok := provider.ParseContributionKind(key); ok {
			kinds = append(kinds, kind)
		}
	}
	if lo.SomeBy(m.EnabledAPIProposals, func(p string) bool {
		return strings.HasPrefix(strings.ToLower(p), "inlinecompletion")
	}) {
		kinds = append(kinds, provider.ContributionInlineCompletionProvider)
	}
	meta.Contributions = lo.Uniq(kinds)

	if raw, ok := m.Contributes["commands"]; ok {
		var cmds []manifestCommand
		if err := json.Unmarshal(raw, &cmds); err == nil {
			for _, c := range cmds {
				meta.Commands = append(meta.Commands, provider.Command{
					ID:    c.Command,
					Title: localize(commandTitle(c.Title), nls),
				})
			}
		}
	}

	return meta
}

// Contributions lists the contribution point keys in the manifest, sorted.
func (m *manifest) Contributions() []string {
	keys := lo.Keys(m.Contributes)
	sort.Strings(keys)
	return keys
}

// commandTitle accepts both "title": "x" and "title": {"value": "x"}.
func commandTitle(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["value"].(string); ok {
			return s
		}
	}
	return ""
}
