package target

import (
	"errors"
	"testing"

	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"http", "http://example.com", nil},
		{"https with path", "https://sub.example.com/path", nil},
		{"with port", "http://127.0.0.1:8080", nil},
		{"empty", "", errs.ErrEmptyTarget},
		{"no scheme", "example.com", errs.ErrInvalidScheme},
		{"ftp", "ftp://example.com", errs.ErrInvalidScheme},
		{"no host", "http://", errs.ErrMissingHost},
		{"bad escape", "http://exa mple.com/%zz", errs.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q) unexpected error: %v", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("Validate(%q) error should wrap ErrValidation", tt.input)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	info, err := Parse("https://www.example.com:8443/blog")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if info.Scheme != "https" {
		t.Errorf("Scheme = %q, want https", info.Scheme)
	}
	if info.Host != "www.example.com" {
		t.Errorf("Host = %q", info.Host)
	}
	if info.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", info.Domain)
	}
	if info.Port != "8443" {
		t.Errorf("Port = %q, want 8443", info.Port)
	}
	if info.Path != "/blog" {
		t.Errorf("Path = %q, want /blog", info.Path)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "http://example.com"},
		{"example.com:8080/path", "http://example.com:8080/path"},
		{"https://example.com", "https://example.com"},
		{"ftp://example.com", "ftp://example.com"},
		{"  example.com ", "http://example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsIP(t *testing.T) {
	if !IsIP("192.168.1.1") {
		t.Error("expected IPv4 literal to be an IP")
	}
	if !IsIP("::1") {
		t.Error("expected IPv6 literal to be an IP")
	}
	if IsIP("example.com") {
		t.Error("hostname should not be an IP")
	}
	if IsIP("256.1.1.1") {
		t.Error("out of range octet should not be an IP")
	}
}
