package scan

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-recon/internal/fetch"
	"github.com/khanhnv2901/seca-recon/internal/metrics"
	"github.com/khanhnv2901/seca-recon/internal/platform"
	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingGetter struct {
	calls int32
}

func (g *countingGetter) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	atomic.AddInt32(&g.calls, 1)
	return nil, errors.New("unexpected fetch")
}

// blockingGetter answers only when the context ends.
type blockingGetter struct{}

func (blockingGetter) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func pages(m map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := m[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})
}

func serve(t *testing.T, h http.Handler) (string, int) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return server.URL + "/", port
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func newOrchestrator(t *testing.T) *Orchestrator {
	return &Orchestrator{
		Retries:      1,
		CheckTimeout: 10 * time.Second,
		Logger:       zaptest.NewLogger(t),
	}
}

var wordpressSite = map[string]string{
	"/":                    `<html><head><title>Blog</title></head><body><link rel="stylesheet" href="/wp-content/themes/twentytwenty/style.css?ver=1.2"></body></html>`,
	"/wp-login.php":        "<form>login</form>",
	"/wp-admin/":           "admin",
	"/wp-content/":         "",
	"/readme.html":         "<br /> Version 5.9",
	"/wp-json/wp/v2/users": `[{"id":1,"name":"admin"}]`,
}

func TestRun_InvalidTargetIsFatal(t *testing.T) {
	getter := &countingGetter{}
	o := newOrchestrator(t)
	o.Fetcher = getter

	for _, raw := range []string{"", "ftp://example.com", "http://", "not a url"} {
		res, err := o.Run(context.Background(), Request{Target: raw, Platform: platform.WordPress})
		assert.Nil(t, res, raw)
		assert.ErrorIs(t, err, errs.ErrValidation, raw)
	}
	assert.Zero(t, atomic.LoadInt32(&getter.calls))
}

func TestRun_UnknownPlatform(t *testing.T) {
	o := newOrchestrator(t)
	o.Fetcher = &countingGetter{}

	_, err := o.Run(context.Background(), Request{Target: "http://example.com/", Platform: "drupal"})
	assert.ErrorIs(t, err, errs.ErrUnknownPlatform)
}

func TestRun_WordPress(t *testing.T) {
	target, port := serve(t, pages(wordpressSite))
	o := newOrchestrator(t)
	o.Metrics = metrics.New()

	res, err := o.Run(context.Background(), Request{
		Target:   target,
		Platform: platform.WordPress,
		Ports:    []int{port},
		Timeout:  2 * time.Second,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, platform.WordPress, res.Platform)
	assert.Empty(t, res.Errors)
	assert.False(t, res.CompletedAt.Before(res.StartedAt))

	assert.Equal(t, http.StatusOK, res.SiteInfo.StatusCode)
	assert.Equal(t, "Blog", res.SiteInfo.Title)

	assert.Equal(t, "5.9", res.Info.Version)
	require.NotNil(t, res.Info.Outdated)
	assert.True(t, *res.Info.Outdated)
	require.NotNil(t, res.Info.Theme)
	assert.Equal(t, "twentytwenty", res.Info.Theme.Name)

	var vulnNames []string
	for _, v := range res.Vulnerabilities {
		vulnNames = append(vulnNames, v.Name)
	}
	assert.Contains(t, vulnNames, "User enumeration")
	assert.Contains(t, vulnNames, "Outdated WordPress version")

	require.Len(t, res.OpenPorts, 1)
	assert.Equal(t, port, res.OpenPorts[0].Port)
	assert.Equal(t, "open", res.OpenPorts[0].State)

	series, err := testutil.GatherAndCount(o.Metrics.Registry(), "seca_recon_check_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, series)
	assert.Positive(t, res.SeverityCounts()[signature.SeverityHigh])
}

func TestRun_AutoDetection(t *testing.T) {
	joomla := map[string]string{
		"/": `<html><head><meta name="generator" content="Joomla! - Open Source Content Management"></head></html>`,
	}
	plain := map[string]string{"/": "<html><body>hello</body></html>"}

	tests := []struct {
		name string
		site map[string]string
		want string
	}{
		{"wordpress", wordpressSite, platform.WordPress},
		{"joomla", joomla, platform.Joomla},
		{"plain", plain, platform.Web},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, _ := serve(t, pages(tt.site))
			o := newOrchestrator(t)

			got, err := o.Detect(context.Background(), target, 2*time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			res, err := o.Run(context.Background(), Request{
				Target:   target,
				Platform: Auto,
				Ports:    []int{closedPort(t)},
				Timeout:  2 * time.Second,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Platform)
		})
	}
}

func TestRun_UnreachableTargetStillReturnsResult(t *testing.T) {
	port := closedPort(t)
	target := "http://127.0.0.1:" + strconv.Itoa(port) + "/"

	o := newOrchestrator(t)
	res, err := o.Run(context.Background(), Request{
		Target:   target,
		Platform: platform.WordPress,
		Ports:    []int{port},
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, platform.WordPress, res.Platform)
	assert.NotNil(t, res.Technologies)
	assert.NotNil(t, res.Vulnerabilities)
	assert.NotNil(t, res.OpenPorts)
	assert.NotNil(t, res.Info.Assets)
	assert.Empty(t, res.OpenPorts)
	assert.True(t, res.Empty())
	assert.Equal(t, "127.0.0.1", res.SiteInfo.Domain)

	require.Len(t, res.Errors, 3)
	for _, check := range []string{CheckInfo, CheckTechnologies, CheckVulnerabilities} {
		found := false
		for _, e := range res.Errors {
			if strings.HasPrefix(e, check+": ") {
				found = true
			}
		}
		assert.True(t, found, "missing error for %s: %v", check, res.Errors)
	}
}

func TestRun_CheckTimeout(t *testing.T) {
	o := newOrchestrator(t)
	o.Fetcher = blockingGetter{}
	o.CheckTimeout = 100 * time.Millisecond

	start := time.Now()
	res, err := o.Run(context.Background(), Request{
		Target:   "http://127.0.0.1/",
		Platform: platform.Web,
		Ports:    []int{closedPort(t)},
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Len(t, res.Errors, 3)
	for _, e := range res.Errors {
		assert.Contains(t, e, "timed out")
	}
	assert.Empty(t, res.Vulnerabilities)
	assert.Empty(t, res.Technologies)
}

func TestRun_PaddedTargetIsScanned(t *testing.T) {
	target, port := serve(t, pages(map[string]string{"/": "<html><head><title>Home</title></head></html>"}))
	o := newOrchestrator(t)

	res, err := o.Run(context.Background(), Request{
		Target:   "  " + target + "\n",
		Platform: platform.Web,
		Ports:    []int{port},
		Timeout:  2 * time.Second,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Errors)
	assert.Equal(t, target, res.Target)
	assert.Equal(t, http.StatusOK, res.SiteInfo.StatusCode)
	assert.Equal(t, "Home", res.SiteInfo.Title)
	assert.Len(t, res.OpenPorts, 1)

	got, err := o.Detect(context.Background(), " "+target, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, platform.Web, got)
}
