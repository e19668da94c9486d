package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"tia/internal/predict"
	"tia/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	executeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	problemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatTOML:
		return formatTOML(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatTOML(resp interface{}) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(resp); err != nil {
		return "", fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *PredictResponseCLI:
		return formatPredictHuman(v), nil
	case *FinishResponseCLI:
		return formatFinishHuman(v), nil
	case *StatusResponseCLI:
		return formatStatusHuman(v), nil
	case *ShowResponseCLI:
		return formatShowHuman(v), nil
	case *RecordResponseCLI:
		return formatRecordHuman(v), nil
	case version.BuildInfo:
		return fmt.Sprintf("tia %s (commit %s, built %s, %s)", v.Version, v.Commit, v.BuildDate, v.GoVersion), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// padRight pads to a visual width, so styled text still lines up.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func decisionLabel(d predict.Decision) string {
	if d == predict.Skip {
		return skipStyle.Render(string(d))
	}
	return executeStyle.Render(string(d))
}

func formatPredictHuman(resp *PredictResponseCLI) string {
	var b strings.Builder

	if resp.AnalysisID == "" {
		b.WriteString(problemStyle.Render("No analysis available, every test executes") + "\n\n")
	} else {
		b.WriteString(mutedStyle.Render("Analysis "+shortID(resp.AnalysisID)) + "\n\n")
	}

	width := 0
	for _, p := range resp.Predictions {
		if len(p.Test) > width {
			width = len(p.Test)
		}
	}
	for _, p := range resp.Predictions {
		b.WriteString("  " + padRight(decisionLabel(p.Decision), 8) + " " + padRight(p.Test, width) + "  " + string(p.Reason))
		if p.Detail != "" {
			b.WriteString(mutedStyle.Render(" (" + p.Detail + ")"))
		}
		b.WriteString("\n")
	}

	s := resp.Stats
	b.WriteString("\n" + headerStyle.Render("Summary") + "\n")
	b.WriteString(fmt.Sprintf("  %d tests: %d skipped, %d executed (%.1f%% skipped)\n",
		s.Total, s.Skipped, s.Executed, s.SkipRatio*100))
	if len(s.ByReason) > 0 {
		reasons := make([]string, 0, len(s.ByReason))
		for r := range s.ByReason {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			b.WriteString(fmt.Sprintf("    %-36s %d\n", r, s.ByReason[predict.Reason(r)]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFinishHuman(resp *FinishResponseCLI) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Analysis updated") + "\n")
	if resp.PreviousID != "" {
		b.WriteString(fmt.Sprintf("  Previous: %s\n", shortID(resp.PreviousID)))
	}
	b.WriteString(fmt.Sprintf("  Current:  %s\n", shortID(resp.ID)))
	b.WriteString(fmt.Sprintf("  Units:    %d\n", resp.Units))
	b.WriteString(fmt.Sprintf("  Recorded: %d tests this build\n", resp.Recorded))
	b.WriteString(fmt.Sprintf("  Tests:    %d in the merged analysis\n", resp.Tests))
	if resp.Pruned.Analyses > 0 || resp.Pruned.Executions > 0 {
		b.WriteString(fmt.Sprintf("  Pruned:   %d analyses, %d execution blobs\n", resp.Pruned.Analyses, resp.Pruned.Executions))
	}
	if len(resp.Ignored) > 0 {
		b.WriteString(problemStyle.Render(fmt.Sprintf("  Ignored %d facts:", len(resp.Ignored))) + "\n")
		for _, name := range resp.Ignored {
			b.WriteString("    - " + name + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatusHuman(resp *StatusResponseCLI) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("tia v"+resp.TiaVersion) + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	b.WriteString(fmt.Sprintf("Root:    %s\n", resp.Root))
	b.WriteString(fmt.Sprintf("Storage: %s\n", resp.Backend))
	b.WriteString(fmt.Sprintf("Pending: %d recorded facts\n\n", resp.PendingFacts))

	b.WriteString(headerStyle.Render("Analysis") + "\n")
	switch {
	case resp.Verified:
		b.WriteString("  " + skipStyle.Render("verified") + " " + shortID(resp.ID) + "\n")
		b.WriteString(fmt.Sprintf("  %d units, %d tests (%d failed, %d always execute)\n",
			resp.Units, resp.Tests, resp.Failed, resp.AlwaysExecute))
	case resp.Pointer == "":
		b.WriteString("  " + mutedStyle.Render("none recorded yet") + "\n")
	default:
		b.WriteString("  " + problemStyle.Render("unusable") + " " + shortID(resp.Pointer) + "\n")
	}
	if resp.Problem != "" && !resp.Verified {
		b.WriteString("  " + mutedStyle.Render(resp.Problem) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatShowHuman(resp *ShowResponseCLI) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Analysis "+resp.ID) + "\n\n")
	b.WriteString(fmt.Sprintf("%d units\n", len(resp.Units)))
	for _, u := range resp.Units {
		b.WriteString(fmt.Sprintf("  %s %s\n", u.Name, mutedStyle.Render(u.OutputFolder+"/"+u.Path)))
	}
	b.WriteString(fmt.Sprintf("\n%d tests\n", len(resp.Tests)))
	for _, t := range resp.Tests {
		b.WriteString(fmt.Sprintf("  %s [%s]\n", t.Name, strings.Join(t.Tags, ", ")))
		for _, c := range t.Covered {
			b.WriteString("    " + c + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRecordHuman(resp *RecordResponseCLI) string {
	line := fmt.Sprintf("Recorded %s [%s], %d covered units", resp.Test, strings.Join(resp.Tags, ", "), resp.Covered)
	if resp.RawCoverage {
		line += ", raw coverage attached"
	}
	return line
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
