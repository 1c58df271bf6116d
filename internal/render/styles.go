// Package render formats ctxbridge output for the terminal.
package render

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	ColorCyan   = lipgloss.Color("12") // headings
	ColorYellow = lipgloss.Color("11") // heuristic matches, warnings
	ColorGreen  = lipgloss.Color("10") // known providers, healthy
	ColorRed    = lipgloss.Color("9")  // errors
	ColorGray   = lipgloss.Color("8")  // secondary info
)

const (
	SymbolKnown     = "●"
	SymbolHeuristic = "○"
	SymbolSuccess   = "✓"
	SymbolError     = "✗"
	SymbolArrow     = "→"
)

var (
	HeaderStyle  = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorYellow)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed)
	DimStyle     = lipgloss.NewStyle().Foreground(ColorGray)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorGray).Width(12)
)

// DefaultWidth is used when stdout is not a terminal.
const DefaultWidth = 80

// TermWidth returns the width of stdout, or DefaultWidth.
func TermWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return DefaultWidth
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// StatusSymbol returns a styled success or error mark.
func StatusSymbol(ok bool) string {
	if ok {
		return SuccessStyle.Render(SymbolSuccess)
	}
	return ErrorStyle.Render(SymbolError)
}
