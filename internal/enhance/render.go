package enhance

import (
	"fmt"
	"strings"

	"github.com/atinylittleshell/ctxbridge/internal/knowledge"
)

// How many items of each list a template includes.
const (
	standardPatterns = 3
	maximumDecisions = 3
	maximumPatterns  = 5
	maximumHints     = 3
)

const separator = "\n\n---\n"

// Material is everything a template may draw from.
type Material struct {
	Context        knowledge.EnhancedContext
	CurrentFile    string
	WorkspaceRoot  string
	Branch         string // overrides Context.CurrentBranch when set
	SelectionRange string
	SelectionText  string
}

func (m Material) branch() string {
	if m.Branch != "" {
		return m.Branch
	}
	return m.Context.CurrentBranch
}

// Render produces the enhanced prompt for level. The original prompt always
// comes first and is never altered.
func Render(level Level, prompt string, m Material) string {
	switch level {
	case LevelMinimal:
		return renderMinimal(prompt, m)
	case LevelStandard:
		return renderStandard(prompt, m)
	default:
		return renderMaximum(prompt, m)
	}
}

func renderMinimal(prompt string, m Material) string {
	return prompt + separator + "Project: " + orUnknown(m.WorkspaceRoot)
}

func renderStandard(prompt string, m Material) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(separator)
	b.WriteString("Context:\n")
	if patterns := top(m.Context.RelevantPatterns, standardPatterns); len(patterns) > 0 {
		fmt.Fprintf(&b, "- Patterns: %s\n", strings.Join(patterns, ", "))
	}
	fmt.Fprintf(&b, "- Branch: %s\n", orUnknown(m.branch()))
	fmt.Fprintf(&b, "- File: %s", orNone(m.CurrentFile))
	return b.String()
}

func renderMaximum(prompt string, m Material) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(separator)

	if summary := strings.TrimSpace(m.Context.ProjectSummary); summary != "" {
		b.WriteString("## Project\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	writeList(&b, "## Relevant decisions", top(m.Context.RelevantDecisions, maximumDecisions))
	writeList(&b, "## Established patterns", top(m.Context.RelevantPatterns, maximumPatterns))

	b.WriteString("## Current state\n")
	fmt.Fprintf(&b, "- File: %s\n", orNone(m.CurrentFile))
	fmt.Fprintf(&b, "- Branch: %s\n", orUnknown(m.branch()))
	fmt.Fprintf(&b, "- Workspace: %s\n", orUnknown(m.WorkspaceRoot))
	if m.SelectionText != "" {
		fmt.Fprintf(&b, "- Selection (%s):\n```\n%s\n```\n", orUnknown(m.SelectionRange), m.SelectionText)
	} else {
		b.WriteString("- Selection: none\n")
	}

	if hints := top(m.Context.Suggestions, maximumHints); len(hints) > 0 {
		b.WriteString("\n")
		writeList(&b, "## Suggestions", hints)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func top(items []string, n int) []string {
	out := make([]string, 0, n)
	for _, item := range items {
		if len(out) == n {
			break
		}
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
