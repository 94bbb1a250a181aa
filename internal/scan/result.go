package scan

import (
	"time"

	"github.com/khanhnv2901/seca-recon/internal/platform"
	"github.com/khanhnv2901/seca-recon/internal/portscan"
	"github.com/khanhnv2901/seca-recon/internal/signature"
)

// State is the lifecycle stage of one scan.
type State string

const (
	StateInit        State = "init"
	StateProbing     State = "probing"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
)

// Check names, also used as metric labels.
const (
	CheckInfo            = "info"
	CheckTechnologies    = "technologies"
	CheckVulnerabilities = "vulnerabilities"
	CheckPorts           = "ports"
)

// Result is the composite outcome of one scan. It is not modified after Run returns.
type Result struct {
	ID              string                        `json:"id"`
	Target          string                        `json:"target"`
	Platform        string                        `json:"platform"`
	StartedAt       time.Time                     `json:"started_at"`
	CompletedAt     time.Time                     `json:"completed_at"`
	SiteInfo        platform.SiteInfo             `json:"site_info"`
	Info            platform.Info                 `json:"info"`
	Technologies    []platform.DetectedTechnology `json:"technologies"`
	Vulnerabilities []platform.Vulnerability      `json:"vulnerabilities"`
	OpenPorts       []portscan.OpenPort           `json:"open_ports"`
	Errors          []string                      `json:"errors,omitempty"`
}

// Duration returns how long the scan took.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// SeverityCounts tallies vulnerabilities by severity.
func (r *Result) SeverityCounts() map[signature.Severity]int {
	counts := map[signature.Severity]int{
		signature.SeverityHigh:   0,
		signature.SeverityMedium: 0,
		signature.SeverityLow:    0,
	}
	for _, v := range r.Vulnerabilities {
		counts[v.Severity]++
	}
	return counts
}

// Empty reports a scan in which every check came back empty.
func (r *Result) Empty() bool {
	return r.SiteInfo.StatusCode == 0 &&
		len(r.Technologies) == 0 &&
		len(r.Vulnerabilities) == 0 &&
		len(r.OpenPorts) == 0
}

func newResult(id, target string) *Result {
	return &Result{
		ID:              id,
		Target:          target,
		StartedAt:       time.Now().UTC(),
		Technologies:    []platform.DetectedTechnology{},
		Vulnerabilities: []platform.Vulnerability{},
		OpenPorts:       []portscan.OpenPort{},
		Info:            platform.Info{Assets: []platform.Asset{}},
	}
}
