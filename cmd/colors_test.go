package cmd

import (
	"testing"

	"github.com/fatih/color"
)

func TestFormatSeverityWithColor(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	tests := []struct {
		name     string
		severity string
		want     string
	}{
		{name: "high", severity: "high", want: "HIGH"},
		{name: "medium", severity: "Medium", want: "MEDIUM"},
		{name: "low", severity: "low", want: "LOW"},
		{name: "unknown", severity: "info", want: "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSeverityWithColor(tt.severity); got != tt.want {
				t.Fatalf("formatSeverityWithColor(%q) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func TestFormatRiskWithColor(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})

	for _, risk := range []string{"critical", "high", "medium", "low", "info"} {
		if got := formatRiskWithColor(risk); got != risk {
			t.Fatalf("formatRiskWithColor(%q) = %q", risk, got)
		}
	}
}
