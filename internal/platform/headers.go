package platform

import (
	"net/http"
)

// reportedHeaders are the security headers listed in SiteInfo.
var reportedHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
	"Referrer-Policy",
	"Feature-Policy",
	"Permissions-Policy",
}

// requiredHeaders are the headers whose absence is reported as a weakness.
var requiredHeaders = reportedHeaders[:6]

// SecurityHeaderPresence maps each reported security header to whether the response sets it.
func SecurityHeaderPresence(h http.Header) map[string]bool {
	present := make(map[string]bool, len(reportedHeaders))
	for _, name := range reportedHeaders {
		present[name] = h.Get(name) != ""
	}
	return present
}

// MissingSecurityHeaders lists required security headers absent from the response.
func MissingSecurityHeaders(h http.Header) []string {
	var missing []string
	for _, name := range requiredHeaders {
		if h.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// CookieFinding flags a cookie set without Secure or HttpOnly.
type CookieFinding struct {
	Name            string `json:"name"`
	MissingSecure   bool   `json:"missing_secure"`
	MissingHTTPOnly bool   `json:"missing_http_only"`
}

// AnalyzeCookies inspects Set-Cookie headers for missing Secure/HttpOnly flags.
func AnalyzeCookies(h http.Header) []CookieFinding {
	if len(h.Values("Set-Cookie")) == 0 {
		return nil
	}

	resp := &http.Response{Header: h}
	findings := make([]CookieFinding, 0)
	for _, cookie := range resp.Cookies() {
		finding := CookieFinding{
			Name:            cookie.Name,
			MissingSecure:   !cookie.Secure,
			MissingHTTPOnly: !cookie.HttpOnly,
		}
		if finding.MissingSecure || finding.MissingHTTPOnly {
			findings = append(findings, finding)
		}
	}
	return findings
}
