package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/journal"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
)

// maxListedChanges caps the recent-changes list.
const maxListedChanges = 10

func ago(then, now time.Time) string {
	return humanize.RelTime(then, now, "ago", "from now")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Snapshot prints a live context snapshot relative to now.
func Snapshot(w io.Writer, snap livecontext.Snapshot, now time.Time) {
	fmt.Fprintln(w, HeaderStyle.Render("Live context"))
	fmt.Fprintln(w, LabelStyle.Render("focus")+orDash(snap.CurrentFocusFile))
	fmt.Fprintln(w, LabelStyle.Render("languages")+orDash(strings.Join(snap.ActiveLanguages, ", ")))
	fmt.Fprintln(w, LabelStyle.Render("patterns")+orDash(strings.Join(snap.InferredPatterns, ", ")))
	fmt.Fprintln(w, LabelStyle.Render("last hour")+fmt.Sprintf("%s changes, %s saves",
		humanize.Comma(int64(snap.ActivityCounts.Changes)), humanize.Comma(int64(snap.ActivityCounts.Saves))))

	fmt.Fprintln(w)
	if len(snap.RecentChanges) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No recent changes."))
		return
	}

	fmt.Fprintln(w, HeaderStyle.Render(fmt.Sprintf("Recent changes (%d)", len(snap.RecentChanges))))
	changes := snap.RecentChanges
	if len(changes) > maxListedChanges {
		changes = changes[len(changes)-maxListedChanges:]
	}
	for i := len(changes) - 1; i >= 0; i-- {
		e := changes[i]
		fmt.Fprintf(w, "  %s %s %s\n", SymbolArrow, filepath.Base(e.File), DimStyle.Render(e.Language+", "+ago(e.Timestamp, now)))
	}
	if hidden := len(snap.RecentChanges) - len(changes); hidden > 0 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("  … and %d more", hidden)))
	}
}

// Prompt prints an enhanced prompt wrapped to width.
func Prompt(w io.Writer, prompt string, width int) {
	fmt.Fprintln(w, wordwrap.String(prompt, max(width, 20)))
}

// History prints journal entries, newest last.
func History(w io.Writer, entries []journal.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("Journal is empty."))
		return
	}
	for _, e := range entries {
		kind := string(e.Kind)
		if e.Level != "" {
			kind += "/" + e.Level
		}
		fmt.Fprintf(w, "%s %s %s\n", DimStyle.Render(ago(e.CreatedAt, now)), WarnStyle.Render("["+kind+"]"), e.Query)
		fmt.Fprintln(w, DimStyle.Render(strings.TrimRight("    "+e.ID+"  "+e.File, " ")))
	}
}

// StatusInfo is what `ctxbridge status` reports.
type StatusInfo struct {
	Version       string
	DataDir       string
	ConfigSources []string
	ServiceURL    string
	ServiceErr    error
	ServiceStatus string
	DaemonAddr    string
	DaemonErr     error
	DaemonClients int
	Providers     int
}

// Status prints a health summary.
func Status(w io.Writer, s StatusInfo) {
	fmt.Fprintln(w, HeaderStyle.Render("ctxbridge "+s.Version))
	fmt.Fprintln(w, LabelStyle.Render("data")+s.DataDir)
	if len(s.ConfigSources) > 0 {
		fmt.Fprintln(w, LabelStyle.Render("config")+strings.Join(s.ConfigSources, ", "))
	} else {
		fmt.Fprintln(w, LabelStyle.Render("config")+DimStyle.Render("defaults"))
	}

	service := s.ServiceURL
	if s.ServiceErr != nil {
		service += " " + ErrorStyle.Render(s.ServiceErr.Error())
	} else if s.ServiceStatus != "" {
		service += " " + DimStyle.Render("("+s.ServiceStatus+")")
	}
	fmt.Fprintln(w, LabelStyle.Render("service")+StatusSymbol(s.ServiceErr == nil)+" "+service)

	daemon := s.DaemonAddr
	if s.DaemonErr != nil {
		daemon += " " + DimStyle.Render("not running")
	} else {
		daemon += " " + DimStyle.Render(fmt.Sprintf("(%d editor(s) connected)", s.DaemonClients))
	}
	fmt.Fprintln(w, LabelStyle.Render("daemon")+StatusSymbol(s.DaemonErr == nil)+" "+daemon)
	fmt.Fprintln(w, LabelStyle.Render("providers")+fmt.Sprintf("%d detected", s.Providers))
}
