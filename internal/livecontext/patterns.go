package livecontext

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var languagePatterns = map[string]string{
	"typescript":      "TypeScript development",
	"typescriptreact": "TypeScript development",
	"javascript":      "JavaScript development",
	"javascriptreact": "JavaScript development",
	"python":          "Python development",
	"go":              "Go development",
	"rust":            "Rust development",
	"java":            "Java development",
	"csharp":          "C# development",
	"ruby":            "Ruby development",
	"php":             "PHP development",
	"sql":             "Database work",
	"markdown":        "Documentation",
	"dockerfile":      "Containerization",
	"yaml":            "Configuration management",
}

type filePattern struct {
	match   func(path, base string) bool
	pattern string
}

var filePatterns = []filePattern{
	{
		match:   func(_, base string) bool { return hasAnySuffix(base, ".tsx", ".jsx") },
		pattern: "React components",
	},
	{
		match: func(_, base string) bool {
			return strings.HasSuffix(base, "_test.go") ||
				strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") ||
				strings.HasPrefix(base, "test_")
		},
		pattern: "Test-driven development",
	},
	{
		match: func(path, _ string) bool {
			return strings.Contains(filepath.ToSlash(path), "/api/") || strings.Contains(filepath.ToSlash(path), "/routes/")
		},
		pattern: "API development",
	},
	{
		match:   func(_, base string) bool { return base == "Dockerfile" || strings.HasPrefix(base, "docker-compose") },
		pattern: "Containerization",
	},
	{
		match:   func(path, _ string) bool { return strings.Contains(filepath.ToSlash(path), "/migrations/") },
		pattern: "Database migrations",
	},
	{
		match:   func(_, base string) bool { return hasAnySuffix(base, ".css", ".scss", ".less") },
		pattern: "Styling",
	},
}

// InferPatterns derives short descriptions of the work in progress from
// the active languages and recently edited files. Output is sorted and
// free of duplicates.
func InferPatterns(languages []string, files []string) []string {
	var out []string
	for _, lang := range languages {
		if p, ok := languagePatterns[strings.ToLower(lang)]; ok {
			out = append(out, p)
		}
	}
	for _, f := range files {
		base := filepath.Base(f)
		for _, fp := range filePatterns {
			if fp.match(f, base) {
				out = append(out, fp.pattern)
			}
		}
	}
	out = lo.Uniq(out)
	sort.Strings(out)
	if out == nil {
		return []string{}
	}
	return out
}

func hasAnySuffix(s string, suffixes ...string) bool {
	return lo.SomeBy(suffixes, func(suffix string) bool { return strings.HasSuffix(s, suffix) })
}

// LanguageForFile guesses an editor language id from a file name.
func LanguageForFile(path string) string {
	base := filepath.Base(path)
	switch base {
	case "Dockerfile":
		return "dockerfile"
	case "Makefile":
		return "makefile"
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".go":
		return "go"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "typescriptreact"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "javascriptreact"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".cs":
		return "csharp"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	case ".sql":
		return "sql"
	case ".md":
		return "markdown"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".css", ".scss", ".less":
		return "css"
	case ".html", ".htm":
		return "html"
	case ".sh", ".bash":
		return "shellscript"
	default:
		return "plaintext"
	}
}
