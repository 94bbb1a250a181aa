package platform

import (
	"encoding/json"

	"github.com/khanhnv2901/seca-recon/internal/signature"
)

// Vulnerability is one reported weakness.
type Vulnerability struct {
	Name        string             `json:"name"`
	Severity    signature.Severity `json:"severity"`
	Description string             `json:"description"`
	Evidence    string             `json:"evidence"`
}

// Asset is a detected theme, template, plugin or component. An empty Version
// means the asset was found but its version could not be extracted.
type Asset struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author,omitempty"`
	Latest  *bool  `json:"latest,omitempty"`
}

// MarshalJSON encodes a missing version as null.
func (a Asset) MarshalJSON() ([]byte, error) {
	type plain Asset
	out := struct {
		plain
		Version *string `json:"version"`
	}{plain: plain(a)}
	if a.Version != "" {
		out.Version = &a.Version
	}
	return json.Marshal(out)
}

// DetectedTechnology is a fingerprinted technology.
type DetectedTechnology struct {
	Name       string               `json:"name"`
	Version    string               `json:"version,omitempty"`
	Confidence signature.Confidence `json:"confidence"`
}

// SiteInfo is homepage metadata.
type SiteInfo struct {
	URL             string          `json:"url"`
	Domain          string          `json:"domain"`
	StatusCode      int             `json:"status_code,omitempty"`
	ContentType     string          `json:"content_type,omitempty"`
	Server          string          `json:"server,omitempty"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Keywords        string          `json:"keywords,omitempty"`
	RobotsTxt       bool            `json:"robots_txt"`
	SitemapXML      bool            `json:"sitemap_xml"`
	HTTPS           bool            `json:"https"`
	SecurityHeaders map[string]bool `json:"security_headers,omitempty"`
	FaviconHash     *int32          `json:"favicon_hash,omitempty"`
}

// Info is the platform-specific inventory of a target.
type Info struct {
	Platform string  `json:"platform"`
	Version  string  `json:"version,omitempty"`
	Baseline string  `json:"baseline,omitempty"`
	Outdated *bool   `json:"outdated,omitempty"`
	Theme    *Asset  `json:"theme,omitempty"`
	Assets   []Asset `json:"assets"`
}
