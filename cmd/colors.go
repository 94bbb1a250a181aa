package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatSeverityWithColor(severity string) string {
	label := strings.ToUpper(severity)
	switch strings.ToLower(severity) {
	case "high", "critical":
		return colorError(label)
	case "medium":
		return colorWarn(label)
	case "low":
		return colorInfo(label)
	default:
		return label
	}
}

func formatRiskWithColor(risk string) string {
	switch strings.ToLower(risk) {
	case "critical", "high":
		return colorError(risk)
	case "medium":
		return colorWarn(risk)
	default:
		return risk
	}
}
