package platform

import (
	"context"
	"net/http"
	"testing"

	"github.com/khanhnv2901/seca-recon/internal/fetch"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(vulns []Vulnerability) []string {
	out := make([]string, 0, len(vulns))
	for _, v := range vulns {
		out = append(out, v.Name)
	}
	return out
}

func byName(vulns []Vulnerability, name string) Vulnerability {
	for _, v := range vulns {
		if v.Name == name {
			return v
		}
	}
	return Vulnerability{}
}

func TestScanVulnerabilities_WordPress(t *testing.T) {
	p, url := newProbe(t, WordPress, site{
		pages: map[string]string{
			"/":                    `<script src="/wp-content/plugins/old-plugin/js/a.js?ver=2.1"></script>`,
			"/readme.html":         "<br /> Version 5.9",
			"/wp-json/wp/v2/users": `[{"id":1,"name":"admin"},{"id":2,"name":"editor"}]`,
			"/wp-json/wp/v2/posts": `[]`,
			"/wp-content/themes/":  "<h1>Index of /wp-content/themes</h1>",
			"/wp-content/plugins/": "Forbidden",
			"/wp-login.php":        "<form>login</form>",
		},
		status: map[string]int{
			"/xmlrpc.php":          http.StatusMethodNotAllowed,
			"/wp-content/plugins/": http.StatusForbidden,
		},
	})

	vulns, err := p.ScanVulnerabilities(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"WordPress version disclosure",
		"User enumeration",
		"XML-RPC enabled",
		"Theme directory listing",
		"Outdated WordPress version",
		"Outdated plugin: old-plugin",
		"Default login page exposed",
	}, names(vulns))

	assert.Equal(t, `found "5.9" in /readme.html`, vulns[0].Evidence)
	assert.Equal(t, "2 entries: admin, editor", vulns[1].Evidence)
	assert.Equal(t, signature.SeverityMedium, vulns[2].Severity)
	assert.Equal(t, signature.SeverityHigh, byName(vulns, "Outdated WordPress version").Severity)
	assert.Equal(t, url+"wp-login.php", byName(vulns, "Default login page exposed").Evidence)
}

func TestScanVulnerabilities_Joomla(t *testing.T) {
	p, url := newProbe(t, Joomla, site{
		pages: map[string]string{
			"/": "<html>joomla</html>",
			"/administrator/manifests/files/joomla.xml": "<version>4.3.3</version>",
			"/README.txt":   "Joomla! 4.3 is free software",
			"/components/":  "Index of /components",
		},
		status: map[string]int{
			"/installation/":  http.StatusForbidden,
			"/administrator/": http.StatusUnauthorized,
		},
	})

	vulns, err := p.ScanVulnerabilities(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Joomla version disclosure",
		"Installation directory present",
		"Component directory listing",
		"README disclosure",
	}, names(vulns), "4.3.3 matches the baseline and the admin page is not a 200")
	assert.Equal(t, "/installation/ reachable (status 403)", vulns[1].Evidence)
}

func TestScanVulnerabilities_Web(t *testing.T) {
	p, url := newProbe(t, Web, site{
		pages: map[string]string{"/": "<h1>Index of /</h1> Warning: mysql_fetch_array() expects"},
		headers: http.Header{
			"Set-Cookie":             {"session=abc; Path=/"},
			"X-Content-Type-Options": {"nosniff"},
		},
	})

	vulns, err := p.ScanVulnerabilities(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SQL Injection",
		"Directory Listing",
		"Missing security headers",
		"Insecure cookies",
		"HTTPS not used",
	}, names(vulns))
	assert.Equal(t, "mysql_fetch_array", vulns[0].Evidence)
	assert.Equal(t, "Index of /", vulns[1].Evidence)
	assert.NotContains(t, vulns[2].Evidence, "X-Content-Type-Options")
	assert.Equal(t, "session (missing Secure), session (missing HttpOnly)", vulns[3].Evidence)
	assert.Equal(t, url, vulns[4].Evidence)
}

func TestScanVulnerabilities_UnreachableStillReturns(t *testing.T) {
	for _, name := range []string{Web, WordPress, Joomla} {
		t.Run(name, func(t *testing.T) {
			p, _ := newProbe(t, name, site{})

			vulns, err := p.ScanVulnerabilities(context.Background(), closedURL(t))
			assert.Error(t, err)
			assert.NotNil(t, vulns)
			assert.Empty(t, vulns)
		})
	}
}

func TestEvaluate_JSONList(t *testing.T) {
	sig := signature.Signature{Name: "posts", Path: "/p", Condition: signature.ConditionJSONList}

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"non-empty array", 200, `[{"id":1},{"id":2}]`, true},
		{"empty array", 200, `[]`, false},
		{"object", 200, `{"code":"rest_no_route"}`, false},
		{"not json", 200, `<html>`, false},
		{"not 200", 401, `[{"id":1}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence, ok := evaluate(sig, &fetch.Result{StatusCode: tt.status, Body: tt.body})
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, "2 entries", evidence)
			}
		})
	}
}
