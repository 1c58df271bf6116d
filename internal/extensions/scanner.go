// Package extensions inventories the extensions installed in an editor's
// extension directories and exposes them to the provider detector.
package extensions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"go.uber.org/zap"
)

// DefaultDirs returns the extension directories of the common VS Code
// family editors under home.
func DefaultDirs(home string) []string {
	return []string{
		filepath.Join(home, ".vscode", "extensions"),
		filepath.Join(home, ".vscode-insiders", "extensions"),
		filepath.Join(home, ".cursor", "extensions"),
		filepath.Join(home, ".windsurf", "extensions"),
	}
}

// Scanner reads extension manifests from one or more directories.
type Scanner struct {
	dirs   []string
	logger *zap.Logger
}

// NewScanner creates a Scanner over dirs.
func NewScanner(dirs []string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{dirs: dirs, logger: logger}
}

// Dirs returns the directories the scanner reads.
func (s *Scanner) Dirs() []string {
	return s.dirs
}

// Scan returns one metadata record per extension id, sorted by id. When an
// id is installed in several versions the highest semantic version wins.
// Unreadable directories and malformed manifests are skipped.
func (s *Scanner) Scan() []provider.ExtensionMetadata {
	byID := make(map[string]provider.ExtensionMetadata)

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				s.logger.Debug("cannot read extension directory", zap.String("dir", dir), zap.Error(err))
			}
			continue
		}

		obsolete := readObsolete(dir)

		for _, e := range entries {
			if !e.IsDir() || obsolete[e.Name()] {
				continue
			}
			extDir := filepath.Join(dir, e.Name())
			m, err := readManifest(extDir)
			if err != nil {
				s.logger.Debug("skipping extension with unreadable manifest", zap.String("path", extDir), zap.Error(err))
				continue
			}
			meta := m.normalize(extDir)
			if meta.ID == "" {
				s.logger.Debug("skipping extension without publisher/name", zap.String("path", extDir))
				continue
			}
			meta.Active = entryLoadable(m.entryPoint(extDir))

			if existing, ok := byID[meta.ID]; ok && !newer(meta.Version, existing.Version) {
				continue
			}
			byID[meta.ID] = meta
		}
	}

	out := make([]provider.ExtensionMetadata, 0, len(byID))
	for _, meta := range byID {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// newer reports whether candidate is a higher version than current.
// Parsable versions beat unparsable ones.
func newer(candidate, current string) bool {
	cv, cerr := semver.NewVersion(candidate)
	ev, eerr := semver.NewVersion(current)
	switch {
	case cerr != nil:
		return false
	case eerr != nil:
		return true
	default:
		return cv.GreaterThan(ev)
	}
}

// readObsolete parses the editor's .obsolete marker listing extension
// folders pending removal.
func readObsolete(dir string) map[string]bool {
	data, err := os.ReadFile(filepath.Join(dir, ".obsolete"))
	if err != nil {
		return nil
	}
	var marks map[string]bool
	if err := json.Unmarshal(data, &marks); err != nil {
		return nil
	}
	return marks
}

func entryLoadable(entry string) bool {
	if entry == "" {
		return true
	}
	if _, err := os.Stat(entry); err == nil {
		return true
	}
	// Entry points are often declared without the .js suffix.
	_, err := os.Stat(entry + ".js")
	return err == nil
}
