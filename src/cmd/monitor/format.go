package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"jenkins-monitor/src/contracts"
	"jenkins-monitor/src/mcp"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/stages"
)

// Column widths for table cells. Wider values are truncated with an ellipsis.
const (
	nameWidth    = 40
	stageWidth   = 32
	commandWidth = 60
	urlWidth     = 60
)

var (
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// truncate shortens s to at most width terminal cells.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// statusStyle picks the color for a build status or a Jenkins ball color.
func statusStyle(status string) lipgloss.Style {
	s := strings.ToUpper(status)
	switch {
	case stages.IsFailureClass(s), strings.HasPrefix(s, "RED"), strings.HasPrefix(s, "ABORTED"):
		return failureStyle
	case s == stages.StatusInProgress, strings.HasSuffix(s, "_ANIME"):
		return runningStyle
	case s == stages.StatusSuccess, strings.HasPrefix(s, "BLUE"):
		return successStyle
	}
	return mutedStyle
}

// stageCell shows the current stage of a running build or the failed stage of a broken one.
func stageCell(snap stages.BuildSnapshot) string {
	switch {
	case snap.CurrentStage != "":
		return "> " + truncate(snap.CurrentStage, stageWidth-2)
	case snap.FailedStage != "":
		return "x " + truncate(snap.FailedStage, stageWidth-2)
	}
	return "-"
}

func formatStarted(epochMillis int64) string {
	if epochMillis <= 0 {
		return "-"
	}
	return time.UnixMilli(epochMillis).Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d *int64) string {
	if d == nil {
		return "running"
	}
	return (time.Duration(*d) * time.Millisecond).Round(time.Second).String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

func jobsTable(jobs []provider.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			truncate(j.Name, nameWidth),
			statusStyle(j.Color).Render(orDash(j.Color)),
			truncate(j.URL, urlWidth),
		})
	}
	return newTable("Name", "Color", "URL").Rows(rows...).String()
}

// shortParamType drops the "ParameterDefinition" suffix and any package prefix.
func shortParamType(t string) string {
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	if short := strings.TrimSuffix(t, "ParameterDefinition"); short != "" {
		return short
	}
	return t
}

func parametersTable(params []provider.JobParameter) string {
	rows := make([][]string, 0, len(params))
	for _, p := range params {
		rows = append(rows, []string{
			truncate(p.Name, nameWidth),
			shortParamType(p.Type),
			orDash(truncate(p.DefaultValue, stageWidth)),
			orDash(truncate(strings.Join(p.Choices, ", "), stageWidth)),
			orDash(truncate(p.Description, commandWidth)),
		})
	}
	return newTable("Name", "Type", "Default", "Choices", "Description").Rows(rows...).String()
}

func buildsTable(snaps []stages.BuildSnapshot) string {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			fmt.Sprintf("#%d", s.BuildNumber),
			statusStyle(s.Status).Render(s.Status),
			stageCell(s),
			formatStarted(s.Timestamp),
			formatDuration(s.Duration),
		})
	}
	return newTable("Build", "Status", "Stage", "Started", "Duration").Rows(rows...).String()
}

func buildDetail(job string, snap stages.BuildSnapshot, command string) string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label+":")), value)
	}

	line("Job", job)
	line("Build", fmt.Sprintf("#%d", snap.BuildNumber))
	line("Status", statusStyle(snap.Status).Render(snap.Status))
	line("Started", formatStarted(snap.Timestamp))
	line("Duration", formatDuration(snap.Duration))
	if snap.CurrentStage != "" {
		line("Current stage", snap.CurrentStage)
	}
	if stages.IsFailureClass(snap.Status) {
		line("Failed stage", orDash(snap.FailedStage))
		line("Failing command", orDash(truncate(command, commandWidth)))
	}
	return b.String()
}

func analysisDetail(a mcp.LogAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Failed stage:   "), orDash(a.FailedStage))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Failing command:"), orDash(a.FailingCommand))
	return b.String()
}

func eventLine(ev contracts.StageFailureEvent) string {
	return fmt.Sprintf("%s %s #%d %s stage=%s command=%s",
		mutedStyle.Render(ev.DetectedAt),
		ev.Job,
		ev.BuildNumber,
		statusStyle(ev.Status).Render(ev.Status),
		orDash(ev.FailedStage),
		orDash(truncate(ev.FailingCommand, commandWidth)),
	)
}
