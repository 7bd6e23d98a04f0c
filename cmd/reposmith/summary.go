package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(24)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func writeJSON(w io.Writer, res pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func renderSummary(w io.Writer, res pipeline.Result) {
	var b strings.Builder

	status := "✓ improvements applied"
	switch {
	case res.Outcome == pipeline.OutcomeNoChanges && res.ImprovementsGenerated > 0:
		status = "✓ no improvements still applicable"
	case res.Outcome == pipeline.OutcomeNoChanges:
		status = "✓ no improvements to apply"
	}
	b.WriteString(titleStyle.Render("reposmith") + " " + okStyle.Render(status) + "\n")

	row(&b, "Repositories analyzed", fmt.Sprint(res.RepositoriesAnalyzed))
	row(&b, "Files targeted", res.FilesTargeted.String())
	row(&b, "Improvements generated", fmt.Sprint(res.ImprovementsGenerated))
	row(&b, "Improvements applied", fmt.Sprint(res.ImprovementsApplied))
	if res.Branch != "" {
		row(&b, "Branch", res.Branch)
	}
	if res.TargetPath != "" {
		row(&b, "Local path", res.TargetPath)
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s in %s", res.RunID, res.Duration.Round(time.Millisecond))) + "\n")

	fmt.Fprint(w, b.String())
}

func renderFailure(w io.Writer, res pipeline.Result) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("reposmith") + " " + failStyle.Render("✗ "+outcomeLabel(res.Outcome)) + "\n")
	row(&b, "Error", res.Error)
	if res.RepositoriesAnalyzed > 0 {
		row(&b, "Repositories analyzed", fmt.Sprint(res.RepositoriesAnalyzed))
	}
	if res.ImprovementsGenerated > 0 {
		row(&b, "Improvements generated", fmt.Sprint(res.ImprovementsGenerated))
	}
	if res.RunID != "" {
		b.WriteString(dimStyle.Render("run "+res.RunID) + "\n")
	}
	fmt.Fprint(w, b.String())
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
}

func outcomeLabel(o pipeline.Outcome) string {
	switch o {
	case pipeline.OutcomeConfigurationFailure:
		return "configuration error"
	case pipeline.OutcomeIntegrityFailure:
		return "integrity error"
	case pipeline.OutcomeOperationalFailure:
		return "run failed"
	default:
		return string(o)
	}
}

// progressPrinter writes one line per stage transition.
func progressPrinter(w io.Writer) pipeline.ProgressFunc {
	return func(p pipeline.StageProgress) {
		line := fmt.Sprintf("%-10s %s", p.Stage, p.Status)
		if p.Message != "" {
			line += ": " + p.Message
		}
		fmt.Fprintln(w, dimStyle.Render(line))
	}
}
