package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/rand/starweave/internal/agent"
	"github.com/rand/starweave/internal/app"
	"github.com/rand/starweave/internal/journal"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	conceptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CED1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA07A"))
	promptStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#9400D3"))
)

// styledln writes a styled line, downsampling colors to what w supports.
func styledln(w io.Writer, s string) {
	lipgloss.Fprintln(w, s)
}

func formatState(s [2]float64) string {
	return fmt.Sprintf("[%.3f, %.3f]", s[0], s[1])
}

func renderResult(w io.Writer, res *app.Result) {
	if res.Matched() {
		styledln(w, titleStyle.Render("✨ Best match: ")+conceptStyle.Render(res.Concept+"!"))
		fmt.Fprintf(w, "   Similarity: %.2f\n", res.Similarity)
		if res.Module != "" {
			fmt.Fprintf(w, "   Module: %s\n", res.Module)
		}
		fmt.Fprintf(w, "   State before update: %s\n", formatState(res.StateBefore))
		fmt.Fprintf(w, "   State after update:  %s\n", formatState(res.StateAfter))
		fmt.Fprintf(w, "   Curiosity: %.3f\n", res.Curiosity)
		fmt.Fprintln(w)
		styledln(w, titleStyle.Render("💫 System action:"))
		fmt.Fprintln(w, res.Response)
		fmt.Fprintln(w)
		styledln(w, mutedStyle.Render(fmt.Sprintf("🧠 '%s' added to working memory", res.Input)))
	} else {
		styledln(w, mutedStyle.Render("🔍 No strong match found. Responding with default action."))
		fmt.Fprintf(w, "💬 %s\n", res.Response)
	}

	if res.CoCreation != nil {
		fmt.Fprintln(w)
		renderCoCreation(w, *res.CoCreation)
	}
	if res.Reflection != nil {
		fmt.Fprintln(w)
		renderReflection(w, res.Reflection)
	}
	if res.Prompt != "" {
		fmt.Fprintln(w)
		styledln(w, promptStyle.Render("💭 "+res.Prompt))
	}
}

func renderCoCreation(w io.Writer, report agent.CoCreationReport) {
	if !report.OK() {
		styledln(w, warnStyle.Render("Warning: "+report.Warning))
		return
	}
	styledln(w, titleStyle.Render("🤝 Co-creation"))
	for _, line := range report.Lines {
		fmt.Fprintf(w, "   %s\n", line)
	}
	fmt.Fprintf(w, "   Propensity: %.1f\n", report.Propensity)
}

func renderReflection(w io.Writer, r *app.Reflection) {
	styledln(w, titleStyle.Render("🪞 Reflection"))
	fmt.Fprintf(w, "   Interactions: %d (matched %d, rate %.0f%%)\n",
		r.Stats.Total, r.Stats.Matched, r.Stats.MatchRate()*100)
	fmt.Fprintf(w, "   Propensity: %.1f\n", r.Propensity)
	for _, c := range r.Concepts {
		fmt.Fprintf(w, "   %-14s curiosity %.3f\n", c.Name, c.Curiosity)
	}
	if len(r.Memory) > 0 {
		fmt.Fprintln(w, "   Recent memory:")
		for _, m := range r.Memory {
			fmt.Fprintf(w, "     - %s\n", m)
		}
	}
}

func renderModules(w io.Writer, modules []app.ModuleInfo) {
	styledln(w, titleStyle.Render("Modules"))
	fmt.Fprintln(w)
	for _, m := range modules {
		fmt.Fprintf(w, "  %-10s %-40s co-creations: %d\n", m.Name, strings.Join(m.Concepts, ", "), m.CoCreations)
	}
}

func renderHistory(w io.Writer, entries []journal.Interaction) {
	if len(entries) == 0 {
		styledln(w, mutedStyle.Render("No interactions recorded."))
		return
	}
	for _, e := range entries {
		label := "no match"
		if e.Matched() {
			label = fmt.Sprintf("%s (%.2f)", e.Concept, e.Similarity)
			if e.Module != "" {
				label += " via " + e.Module
			}
		}
		fmt.Fprintf(w, "%s  %-28s %s\n",
			mutedStyle.Render(e.Time.Local().Format("2006-01-02 15:04:05")),
			label,
			truncate(e.Input, 60),
		)
	}
}

func renderStats(w io.Writer, s *journal.Stats, propensity float64) {
	styledln(w, titleStyle.Render("Interaction Statistics"))
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Total:       %d\n", s.Total)
	fmt.Fprintf(w, "Matched:     %d (%.0f%%)\n", s.Matched, s.MatchRate()*100)
	fmt.Fprintf(w, "Reflections: %d\n", s.Reflections)
	fmt.Fprintf(w, "Propensity:  %.1f\n", propensity)

	if len(s.ByConcept) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By concept:")
		for _, name := range sortedKeys(s.ByConcept) {
			fmt.Fprintf(w, "  %-14s %d\n", name, s.ByConcept[name])
		}
	}
	if len(s.ByModule) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By module:")
		for _, name := range sortedKeys(s.ByModule) {
			fmt.Fprintf(w, "  %-14s %d\n", name, s.ByModule[name])
		}
	}
}

func sortedKeys(m map[string]int64) []string {
	return slices.Sorted(maps.Keys(m))
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
