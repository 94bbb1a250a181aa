package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-recon/internal/scan"
	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
)

// executeCommand runs the root command with args and restores the shared
// runtime config afterwards.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	saved := *cliConfig
	originalNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		*cliConfig = saved
		resetFlagsChanged()
		color.NoColor = originalNoColor
		viper.Reset()
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlagsChanged clears the Changed marks left behind by a previous Execute.
func resetFlagsChanged() {
	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), scanCmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			f.Changed = false
		})
	}
}

func wordpressServer(t *testing.T) (string, string) {
	t.Helper()
	pages := map[string]string{
		"/":             `<html><head><title>Blog</title><meta name="generator" content="WordPress 6.1.1"></head></html>`,
		"/wp-login.php": "<form>login</form>",
		"/wp-admin/":    "admin",
		"/wp-content/":  "",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return server.URL + "/", u.Port()
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.Contains(out, "seca-recon version dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestScanCommandJSON(t *testing.T) {
	target, port := wordpressServer(t)
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")

	out, _, err := executeCommand(t, "scan", "wordpress", target,
		"--json", "--ports", port, "--timeout", "2", "--retries", "1", "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("scan returned error: %v", err)
	}

	var results []scan.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Platform != "wordpress" || res.Info.Version != "6.1.1" {
		t.Errorf("platform/version = %s/%s", res.Platform, res.Info.Version)
	}
	if len(res.OpenPorts) != 1 || res.OpenPorts[0].Port == 0 {
		t.Errorf("open ports = %+v", res.OpenPorts)
	}

	metricsText, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(metricsText), "seca_recon_check_duration_seconds") {
		t.Errorf("metrics file missing check durations:\n%s", metricsText)
	}
}

func TestScanCommandText(t *testing.T) {
	target, port := wordpressServer(t)

	out, _, err := executeCommand(t, "scan", "wordpress", target, "--ports", port, "--timeout", "2", "--retries", "1")
	if err != nil {
		t.Fatalf("scan returned error: %v", err)
	}
	for _, want := range []string{
		"Target: " + target,
		"Platform: wordpress 6.1.1 (outdated, baseline 6.4.2)",
		"Title: Blog",
		"[HIGH] Outdated WordPress version",
		"Completed in",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "No data collected") {
		t.Errorf("populated scan flagged as empty:\n%s", out)
	}
}

func TestPrintResultFlagsEmptyScan(t *testing.T) {
	originalNoColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = originalNoColor }()

	var buf bytes.Buffer
	printResult(&buf, &scan.Result{Target: "http://down.example", Platform: "web"}, false)

	out := buf.String()
	if !strings.Contains(out, "No data collected: target did not answer any check") {
		t.Errorf("empty scan not flagged:\n%s", out)
	}
	if !strings.Contains(out, "Vulnerabilities (0): high=0 medium=0 low=0") {
		t.Errorf("missing vulnerability summary:\n%s", out)
	}
}

func TestScanCommandInvalidTarget(t *testing.T) {
	_, stderr, err := executeCommand(t, "scan", "web", "ftp://example.com", "--ports", "1")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 target(s)") {
		t.Fatalf("expected scan failure, got %v", err)
	}
	if !strings.Contains(stderr, "ftp://example.com") {
		t.Errorf("stderr should name the rejected target: %q", stderr)
	}
}

func TestScanCommandInvalidPorts(t *testing.T) {
	_, _, err := executeCommand(t, "scan", "web", "http://example.com", "--ports", "80,http")
	if !errors.Is(err, errs.ErrInvalidPort) {
		t.Fatalf("expected invalid port error, got %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	target, _ := wordpressServer(t)

	out, _, err := executeCommand(t, "detect", target, "--timeout", "2", "--retries", "1")
	if err != nil {
		t.Fatalf("detect returned error: %v", err)
	}
	if !strings.Contains(out, "wordpress") {
		t.Fatalf("unexpected detect output %q", out)
	}
}

func TestDetectCommandUnreachableFallsBackToWeb(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	out, _, err := executeCommand(t, "detect", "http://"+addr+"/", "--timeout", "1", "--retries", "1")
	if err != nil {
		t.Fatalf("detect returned error: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "web") {
		t.Fatalf("unexpected detect output %q", out)
	}
}
