package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-recon/internal/metrics"
	"github.com/khanhnv2901/seca-recon/internal/platform"
	"github.com/khanhnv2901/seca-recon/internal/scan"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"github.com/khanhnv2901/seca-recon/internal/signature"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, jsonPrefix, jsonIndent)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeMetricsFile(path string, m *metrics.Metrics) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()
	if err := m.WriteText(f); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func printResult(w io.Writer, res *scan.Result, verbose bool) {
	fmt.Fprintf(w, "%s %s\n", colorBold("Target:"), res.Target)
	fmt.Fprintf(w, "%s %s\n", colorInfo("Scan ID:"), res.ID)
	fmt.Fprintf(w, "%s %s\n", colorInfo("Platform:"), describePlatform(res.Info, res.Platform))

	if si := res.SiteInfo; si.StatusCode != 0 {
		fmt.Fprintf(w, "%s %d", colorInfo("Status:"), si.StatusCode)
		if si.Server != "" {
			fmt.Fprintf(w, " (server: %s)", si.Server)
		}
		fmt.Fprintln(w)
		if si.Title != "" {
			fmt.Fprintf(w, "%s %s\n", colorInfo("Title:"), si.Title)
		}
		if verbose {
			fmt.Fprintf(w, "%s robots.txt=%t sitemap.xml=%t https=%t\n", colorInfo("Files:"), si.RobotsTxt, si.SitemapXML, si.HTTPS)
			if si.FaviconHash != nil {
				fmt.Fprintf(w, "%s %d\n", colorInfo("Favicon hash:"), *si.FaviconHash)
			}
		}
	}

	if t := res.Info.Theme; t != nil {
		fmt.Fprintf(w, "%s %s\n", colorInfo(capitalize(t.Kind)+":"), describeAsset(*t))
	}
	if len(res.Info.Assets) > 0 {
		fmt.Fprintf(w, "%s\n", colorInfo(fmt.Sprintf("Assets (%d):", len(res.Info.Assets))))
		for _, a := range res.Info.Assets {
			fmt.Fprintf(w, "  - %s\n", describeAsset(a))
		}
	}

	if len(res.Technologies) > 0 {
		fmt.Fprintf(w, "%s\n", colorInfo(fmt.Sprintf("Technologies (%d):", len(res.Technologies))))
		for _, t := range res.Technologies {
			name := t.Name
			if t.Version != "" {
				name += " " + t.Version
			}
			fmt.Fprintf(w, "  - %s [%s]\n", name, t.Confidence)
		}
	}

	if len(res.OpenPorts) > 0 {
		fmt.Fprintf(w, "%s\n", colorInfo(fmt.Sprintf("Open ports (%d):", len(res.OpenPorts))))
		for _, p := range res.OpenPorts {
			fmt.Fprintf(w, "  - %d/%s risk=%s\n", p.Port, p.Service, formatRiskWithColor(p.Risk))
		}
	}

	counts := res.SeverityCounts()
	fmt.Fprintf(w, "%s high=%d medium=%d low=%d\n", colorBold(fmt.Sprintf("Vulnerabilities (%d):", len(res.Vulnerabilities))),
		counts[signature.SeverityHigh], counts[signature.SeverityMedium], counts[signature.SeverityLow])
	for _, v := range res.Vulnerabilities {
		fmt.Fprintf(w, "  [%s] %s\n", formatSeverityWithColor(string(v.Severity)), v.Name)
		if v.Evidence != "" {
			fmt.Fprintf(w, "         evidence: %s\n", v.Evidence)
		}
		if verbose && v.Description != "" {
			fmt.Fprintf(w, "         %s\n", v.Description)
		}
	}

	for _, e := range res.Errors {
		fmt.Fprintf(w, "%s %s\n", colorWarn("Check failed:"), e)
	}
	if res.Empty() {
		fmt.Fprintf(w, "%s target did not answer any check\n", colorWarn("No data collected:"))
	}
	fmt.Fprintf(w, "%s %s\n\n", colorSuccess("Completed in"), res.Duration().Round(time.Millisecond))
}

func describePlatform(info platform.Info, name string) string {
	if info.Version == "" {
		return name
	}
	out := name + " " + info.Version
	if info.Outdated != nil && *info.Outdated {
		out += " " + colorError(fmt.Sprintf("(outdated, baseline %s)", info.Baseline))
	}
	return out
}

func describeAsset(a platform.Asset) string {
	out := a.Name
	if a.Version != "" {
		out += " " + a.Version
	}
	if a.Author != "" {
		out += " by " + a.Author
	}
	if a.Latest != nil && !*a.Latest {
		out += " " + colorWarn("(outdated)")
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
