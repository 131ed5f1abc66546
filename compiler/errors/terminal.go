package errors

import (
	"fmt"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// FormatForTerminal formats a Diagnostic for terminal output with ANSI colors
func (d Diagnostic) FormatForTerminal() string {
	var sb strings.Builder

	severityColor := getSeverityColor(d.Severity)
	label := strings.ToUpper(d.Severity.String()[:1]) + d.Severity.String()[1:]
	sb.WriteString(fmt.Sprintf("%s%s[%s]%s: %s\n",
		colorBold+severityColor,
		label,
		d.Code,
		colorReset,
		d.Message))

	sb.WriteString(fmt.Sprintf("  %s-->%s %s:%d:%d\n",
		colorCyan,
		colorReset,
		d.Location.File,
		d.Location.Line,
		d.Location.Column))

	if d.Declaration != "" {
		sb.WriteString(fmt.Sprintf("  %sin%s %s\n", colorGray, colorReset, d.Declaration))
	}

	if d.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  %shint:%s %s\n", colorCyan, colorReset, d.Suggestion))
	}

	return sb.String()
}

// FormatListForTerminal formats a list of diagnostics followed by a summary line
func FormatListForTerminal(diags []Diagnostic) string {
	var sb strings.Builder
	errCount := 0
	warnCount := 0

	for _, d := range diags {
		sb.WriteString(d.FormatForTerminal())
		sb.WriteString("\n")
		if d.IsError() {
			errCount++
		} else if d.IsWarning() {
			warnCount++
		}
	}

	if errCount > 0 || warnCount > 0 {
		sb.WriteString(fmt.Sprintf("%s%d error(s), %d warning(s)%s\n",
			colorBold, errCount, warnCount, colorReset))
	}

	return sb.String()
}

func getSeverityColor(s Severity) string {
	switch s {
	case Error:
		return colorRed
	case Warning:
		return colorYellow
	default:
		return colorCyan
	}
}
