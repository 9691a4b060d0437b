package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/virtualsteve-star/stinger-sub001/internal/audit"
	"github.com/virtualsteve-star/stinger-sub001/internal/guardrail"
	"github.com/virtualsteve-star/stinger-sub001/internal/pipeline"
)

var (
	allowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D787")).
			Bold(true)
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB000")).
			Bold(true)
	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
	modifyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF")).
			Bold(true)
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080"))
)

func actionStyle(action guardrail.Action) lipgloss.Style {
	switch action {
	case guardrail.ActionBlock:
		return blockStyle
	case guardrail.ActionWarn:
		return warnStyle
	case guardrail.ActionModify:
		return modifyStyle
	default:
		return allowStyle
	}
}

// renderVerdict writes a verdict for humans, or as a JSON document when
// --json is set.
func renderVerdict(w io.Writer, v pipeline.Verdict) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	style := actionStyle(v.Action)
	fmt.Fprintf(w, "%s  %s\n", style.Render(strings.ToUpper(string(v.Action))), mutedStyle.Render(v.CorrelationID.String()))
	for _, r := range v.Results {
		line := fmt.Sprintf("  %-8s %-20s", r.Action, r.Guardrail)
		if r.Reason != "" {
			line += "  " + r.Reason
		}
		fmt.Fprintln(w, actionStyle(r.Action).UnsetBold().Render(line))
	}
	if v.ModifiedContent != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("modified:"), v.ModifiedContent)
	}
	fmt.Fprintf(w, "  %s\n", mutedStyle.Render("elapsed: "+v.Elapsed.String()))
	return nil
}

// renderEntries writes audit entries as a table, or JSON when --json is set.
func renderEntries(w io.Writer, entries []audit.Entry) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		action := string(e.Result.Action)
		if e.Dropped {
			action = "dropped"
		}
		line := fmt.Sprintf("%s  %-8s %-8s %-20s", e.Timestamp.Format("15:04:05.000"), e.Mode, action, e.Guardrail)
		if e.WouldHaveBlocked {
			line += "  " + warnStyle.Render("would have blocked")
		}
		if e.Result.Reason != "" {
			line += "  " + e.Result.Reason
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d entries", len(entries))))
	return nil
}
