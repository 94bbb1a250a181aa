package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultTimeout bounds a single HTTP fetch or TCP connect.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is the total number of fetch attempts on timeout or connection failure.
	DefaultRetries = 3
	// DefaultCheckTimeout bounds one orchestrated check (info, technologies, vulnerabilities, ports).
	DefaultCheckTimeout = 5 * time.Minute
)

const (
	// MaxBodyBytes caps how much of a response body the fetcher keeps.
	MaxBodyBytes = 5 << 20
	// FaviconMaxBytes caps the favicon download used for hashing.
	FaviconMaxBytes = 1 << 20
)

const (
	// DefaultPortWorkers is the default number of concurrent TCP probes.
	DefaultPortWorkers = 10
	// MaxPortWorkers is the hard ceiling on concurrent TCP probes.
	MaxPortWorkers = 16
	// SignatureWorkers bounds concurrent static signature checks per probe.
	SignatureWorkers = 5
	// AssetWorkers bounds concurrent asset manifest lookups per probe.
	AssetWorkers = 5
	// OrchestratorChecks is the number of top-level checks run per scan.
	OrchestratorChecks = 4
)

// DefaultPorts is used when the caller supplies no port list.
var DefaultPorts = []int{80, 443}
