package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/atinylittleshell/ctxbridge/internal/provider"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Providers prints one block per detected provider.
func Providers(w io.Writer, descs []provider.ProviderDescriptor, width int) {
	if len(descs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No AI providers detected."))
		return
	}

	fmt.Fprintln(w, HeaderStyle.Render(fmt.Sprintf("%d AI provider(s) detected", len(descs))))
	for _, d := range descs {
		symbol := WarnStyle.Render(SymbolHeuristic)
		source := "heuristic"
		if d.IsKnown {
			symbol = SuccessStyle.Render(SymbolKnown)
			source = "known"
		}
		fmt.Fprintf(w, "%s %s %s\n", symbol, d.DisplayName, DimStyle.Render("("+d.ID+", "+source+")"))

		caps := make([]string, len(d.Capabilities))
		for i, c := range d.Capabilities {
			caps[i] = string(c)
		}
		wrapped := wordwrap.String(strings.Join(caps, ", "), max(width-4, 20))
		fmt.Fprintln(w, indent.String(DimStyle.Render(wrapped), 4))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s known  %s heuristic\n", SuccessStyle.Render(SymbolKnown), WarnStyle.Render(SymbolHeuristic))
}
