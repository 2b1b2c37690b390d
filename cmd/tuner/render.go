package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tuner/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiBlink  = "\x1b[5m"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "BUSY"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func styleKind(style workflow.Style) statusKind {
	switch style {
	case workflow.StylePulsing:
		return statusWarn
	case workflow.StyleError:
		return statusError
	case workflow.StyleComplete:
		return statusOK
	default:
		return statusInfo
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// renderState describes the phase, snapshot and enabled actions for one user.
// Nothing but a waiting line is shown until the first refresh succeeds.
func renderState(userID string, state workflow.State, instanceName string, colorize bool) []string {
	view := state.View(instanceName)
	if !view.Ready {
		return []string{renderStatusLine("Status", statusInfo, "waiting for first status refresh", colorize)}
	}

	lines := renderSectionHeader(fmt.Sprintf("%s (%s)", titleCase(view.Phase.String()), userID), colorize)
	phase := renderStatusLine("Phase", styleKind(view.Style), view.Phase.String(), colorize)
	if colorize && view.Style == workflow.StylePulsing {
		phase = ansiBlink + phase
	}
	lines = append(lines, phase)

	job := state.Snapshot.Job
	lines = append(lines, renderField("Dataset", valueOr(job.DatasetRef, "none")))
	run := "none"
	if job.HasRun() {
		run = fmt.Sprintf("%s (%s)", job.RunID, view.Status)
	}
	if job.RawStatus != "" {
		run += fmt.Sprintf(" reported %q", job.RawStatus)
	}
	lines = append(lines, renderField("Run", run))

	model := state.Snapshot.Model
	lines = append(lines, renderField("Model", fmt.Sprintf("%s (%s)", valueOr(model.ModelID, "none"), model.Health)))
	if state.ImageURL != "" {
		lines = append(lines, renderField("Image", state.ImageURL))
	}

	actions := []string{
		"upload " + yesNo(view.UploadEnabled),
		"tune " + yesNo(view.TuneEnabled),
		"query " + yesNo(view.QueryEnabled),
	}
	lines = append(lines, renderField("Actions", strings.Join(actions, ", ")))
	if busy := busyActions(view); len(busy) > 0 {
		lines = append(lines, renderStatusLine("In flight", statusWarn, strings.Join(busy, ", "), colorize))
	}
	return lines
}

func busyActions(view workflow.View) []string {
	var busy []string
	if view.Uploading {
		busy = append(busy, "uploading")
	}
	if view.QueueingFinetune {
		busy = append(busy, "queueing fine-tune")
	}
	if view.Querying {
		busy = append(busy, "querying")
	}
	if view.Resetting {
		busy = append(busy, "resetting")
	}
	return busy
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func writeLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
