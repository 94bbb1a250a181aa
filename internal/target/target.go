package target

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
)

// ValidationError reports a target that cannot be scanned.
type ValidationError struct {
	Target string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid target %q: %v", e.Target, e.Err)
}

// Unwrap exposes both the specific cause and errs.ErrValidation.
func (e *ValidationError) Unwrap() []error {
	return []error{errs.ErrValidation, e.Err}
}

// Info contains parsed target information
type Info struct {
	Original string // Original target string
	Scheme   string // http or https
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
	Domain   string // Host with a leading "www." removed
	FullURL  string // Full normalized URL
}

// Validate checks that raw is an absolute http(s) URL with a host.
// It never touches the network.
func Validate(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &ValidationError{Target: raw, Err: errs.ErrEmptyTarget}
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ValidationError{Target: raw, Err: fmt.Errorf("%w: %v", errs.ErrInvalidURL, err)}
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, &ValidationError{Target: raw, Err: errs.ErrInvalidScheme}
	}

	if parsed.Hostname() == "" {
		return nil, &ValidationError{Target: raw, Err: errs.ErrMissingHost}
	}

	return parsed, nil
}

// Parse validates raw and splits it into components.
func Parse(raw string) (*Info, error) {
	parsed, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	host := parsed.Hostname()
	return &Info{
		Original: raw,
		Scheme:   strings.ToLower(parsed.Scheme),
		Host:     host,
		Port:     parsed.Port(),
		Path:     parsed.Path,
		Domain:   strings.TrimPrefix(host, "www."),
		FullURL:  parsed.String(),
	}, nil
}

// Normalize prepends http:// to bare hosts such as "example.com" or
// "example.com:8080/path". Inputs that already carry a scheme are returned as-is
// so Validate can reject unsupported ones.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	// Scheme containing a dot means "host:port" was read as scheme:opaque.
	if err == nil && parsed.Scheme != "" && !strings.Contains(parsed.Scheme, ".") && parsed.Host != "" {
		return raw
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

// IsIP reports whether host is a literal IP address.
func IsIP(host string) bool {
	return net.ParseIP(host) != nil
}
