package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/khanhnv2901/seca-recon/internal/fetch"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/khanhnv2901/seca-recon/internal/version"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ScanVulnerabilities runs the static signatures on a bounded pool and then
// the dynamic checks: outdated core, outdated assets, exposed admin page and
// the enabled side checks. Results follow table order. A failing check is
// absent from the result and never suppresses its siblings. The returned
// error only reports a homepage that could not be fetched.
func (p *Probe) ScanVulnerabilities(ctx context.Context, targetURL string) ([]Vulnerability, error) {
	log := p.Logger.With(zap.String("url", targetURL))

	home, homeErr := p.sharedHomepage(ctx, targetURL)

	sigs := p.Config.Vulnerabilities
	found := make([]*Vulnerability, len(sigs))
	wp := pool.New().WithMaxGoroutines(consts.SignatureWorkers)
	for i, sig := range sigs {
		wp.Go(func() {
			found[i] = p.checkSignature(ctx, targetURL, sig, home)
		})
	}
	wp.Wait()

	vulns := []Vulnerability{}
	for _, v := range found {
		if v != nil {
			vulns = append(vulns, *v)
		}
	}

	res, _ := home()
	vulns = append(vulns, p.dynamicChecks(ctx, targetURL, res)...)

	log.Debug("vulnerability scan finished", zap.Int("count", len(vulns)))
	return vulns, homeErr()
}

// sharedHomepage fetches the homepage at most once for all checks of one scan.
func (p *Probe) sharedHomepage(ctx context.Context, targetURL string) (func() (*fetch.Result, error), func() error) {
	var (
		once sync.Once
		res  *fetch.Result
		err  error
	)
	get := func() (*fetch.Result, error) {
		once.Do(func() { res, err = p.homepage(ctx, targetURL) })
		return res, err
	}
	return get, func() error {
		_, e := get()
		return e
	}
}

func (p *Probe) checkSignature(ctx context.Context, targetURL string, sig signature.Signature, home func() (*fetch.Result, error)) *Vulnerability {
	var (
		res *fetch.Result
		err error
	)
	if sig.Path == "" {
		res, err = home()
	} else {
		res, err = p.get(ctx, targetURL, sig.Path)
	}
	if err != nil {
		p.Logger.Debug("signature check skipped", zap.String("signature", sig.Name), zap.Error(err))
		return nil
	}

	evidence, ok := evaluate(sig, res)
	if !ok {
		return nil
	}
	return &Vulnerability{
		Name:        sig.Name,
		Severity:    sig.Severity,
		Description: sig.Description,
		Evidence:    evidence,
	}
}

// evaluate applies a signature's condition to a response.
func evaluate(sig signature.Signature, res *fetch.Result) (string, bool) {
	switch sig.Cond() {
	case signature.ConditionReachable:
		if !res.Found() {
			return "", false
		}
		return fmt.Sprintf("%s reachable (status %d)", sig.Path, res.StatusCode), true

	case signature.ConditionJSONList:
		if !res.OK() {
			return "", false
		}
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(res.Body), &items); err != nil || len(items) == 0 {
			return "", false
		}
		return jsonListEvidence(items, sig.EvidenceField), true

	default:
		hit, ok := signature.First(res.Body, res.Header, sig)
		if !ok {
			return "", false
		}
		if sig.Path == "" {
			return hit.Evidence, true
		}
		return fmt.Sprintf("found %q in %s", hit.Evidence, sig.Path), true
	}
}

func jsonListEvidence(items []json.RawMessage, field string) string {
	if field == "" {
		return fmt.Sprintf("%d entries", len(items))
	}
	var values []string
	for _, raw := range items {
		var obj map[string]any
		if json.Unmarshal(raw, &obj) != nil {
			continue
		}
		if v, ok := obj[field].(string); ok {
			values = append(values, v)
		}
	}
	return fmt.Sprintf("%d entries: %s", len(values), strings.Join(values, ", "))
}

// dynamicChecks runs the checks that are computed rather than matched.
// home may be nil when the homepage could not be fetched.
func (p *Probe) dynamicChecks(ctx context.Context, targetURL string, home *fetch.Result) []Vulnerability {
	cfg := p.Config
	var vulns []Vulnerability

	var (
		content string
		headers http.Header
	)
	if home != nil {
		headers = home.Header
	}
	if home.OK() {
		content = home.Body
	}

	if v, ok := p.coreVersion(ctx, targetURL, content, headers); ok {
		outdated, err := version.IsOutdated(v, cfg.Baseline)
		switch {
		case err != nil:
			p.Logger.Debug("core version not comparable", zap.String("version", v), zap.Error(err))
		case outdated:
			vulns = append(vulns, Vulnerability{
				Name:        fmt.Sprintf("Outdated %s version", cfg.DisplayName),
				Severity:    signature.SeverityHigh,
				Description: fmt.Sprintf("The site runs %s %s, older than %s, and may be exposed to known vulnerabilities.", cfg.DisplayName, v, cfg.Baseline),
				Evidence:    "version: " + v,
			})
		}
	}

	if spec := cfg.Assets; spec != nil && spec.OutdatedMajorBelow > 0 && content != "" {
		for _, a := range p.assets(ctx, targetURL, content) {
			if a.Version == "" {
				continue
			}
			below, err := version.MajorBelow(a.Version, spec.OutdatedMajorBelow)
			if err != nil || !below {
				continue
			}
			vulns = append(vulns, Vulnerability{
				Name:        fmt.Sprintf("Outdated %s: %s", a.Kind, a.Name),
				Severity:    signature.SeverityMedium,
				Description: fmt.Sprintf("The %s %s runs version %s and may be exposed to known vulnerabilities.", a.Kind, a.Name, a.Version),
				Evidence:    fmt.Sprintf("%s: %s, version: %s", a.Kind, a.Name, a.Version),
			})
		}
	}

	if cfg.AdminPath != "" {
		adminURL := fetch.Join(targetURL, cfg.AdminPath)
		if res, err := p.Fetcher.Fetch(ctx, adminURL); err == nil && res.OK() {
			vulns = append(vulns, Vulnerability{
				Name:        "Default login page exposed",
				Severity:    signature.SeverityLow,
				Description: "The default administrator login page is reachable, which eases credential brute forcing.",
				Evidence:    adminURL,
			})
		}
	}

	if home != nil {
		vulns = append(vulns, p.sideChecks(targetURL, home)...)
	}
	return vulns
}

func (p *Probe) sideChecks(targetURL string, home *fetch.Result) []Vulnerability {
	checks := p.Config.SideChecks
	var vulns []Vulnerability

	if checks.SecurityHeaders {
		if missing := MissingSecurityHeaders(home.Header); len(missing) > 0 {
			vulns = append(vulns, Vulnerability{
				Name:        "Missing security headers",
				Severity:    signature.SeverityLow,
				Description: "Important HTTP security headers are not set.",
				Evidence:    strings.Join(missing, ", "),
			})
		}
	}

	if checks.Cookies {
		var flagged []string
		for _, f := range AnalyzeCookies(home.Header) {
			if f.MissingSecure {
				flagged = append(flagged, f.Name+" (missing Secure)")
			}
			if f.MissingHTTPOnly {
				flagged = append(flagged, f.Name+" (missing HttpOnly)")
			}
		}
		if len(flagged) > 0 {
			vulns = append(vulns, Vulnerability{
				Name:        "Insecure cookies",
				Severity:    signature.SeverityMedium,
				Description: "Cookies are set without the Secure or HttpOnly attributes.",
				Evidence:    strings.Join(flagged, ", "),
			})
		}
	}

	if checks.PlainHTTP {
		if u, err := url.Parse(targetURL); err == nil && u.Scheme != "https" {
			vulns = append(vulns, Vulnerability{
				Name:        "HTTPS not used",
				Severity:    signature.SeverityHigh,
				Description: "The site is served over plain HTTP, so traffic can be intercepted.",
				Evidence:    targetURL,
			})
		}
	}
	return vulns
}
