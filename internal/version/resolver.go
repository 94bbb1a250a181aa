package version

import (
	"context"
	"fmt"
	"net/http"

	"github.com/khanhnv2901/seca-recon/internal/fetch"
	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"go.uber.org/zap"
)

// Source is where an extraction rule looks for a version.
type Source string

const (
	SourceBody   Source = "body"
	SourceHeader Source = "header"
	SourcePath   Source = "path"
)

// Rule is one version extraction attempt. Pattern must have a capture group.
type Rule struct {
	Source  Source `yaml:"source"`
	Pattern string `yaml:"pattern"`
	Header  string `yaml:"header,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// AuxFetcher retrieves an auxiliary path relative to the target.
type AuxFetcher func(ctx context.Context, path string) (*fetch.Result, error)

// Resolver extracts versions using ordered rules keyed by technology name.
type Resolver struct {
	Rules  map[string][]Rule
	Logger *zap.Logger
}

// NewResolver creates a resolver over a read-only rule set.
func NewResolver(rules map[string][]Rule, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Rules: rules, Logger: logger}
}

// Resolve tries the rules for tech in order and returns the first capture of
// the first rule that matches. Path rules only consider 200 responses.
func (r *Resolver) Resolve(ctx context.Context, tech, content string, headers http.Header, aux AuxFetcher) (string, bool) {
	for _, rule := range r.Rules[tech] {
		var target string
		switch rule.Source {
		case SourceBody:
			target = content
		case SourceHeader:
			target = headers.Get(rule.Header)
		case SourcePath:
			if aux == nil {
				continue
			}
			res, err := aux(ctx, rule.Path)
			if err != nil {
				r.logger().Debug("version path unavailable", zap.String("tech", tech), zap.String("path", rule.Path), zap.Error(err))
				continue
			}
			if !res.OK() {
				continue
			}
			target = res.Body
		default:
			continue
		}

		if target == "" {
			continue
		}
		re, err := signature.Compile(rule.Pattern)
		if err != nil {
			r.logger().Warn("invalid version pattern", zap.String("tech", tech), zap.String("pattern", rule.Pattern), zap.Error(err))
			continue
		}
		if m := re.FindStringSubmatch(target); len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// Validate checks that every rule has a known source and a compiling pattern.
func (r *Resolver) Validate() error {
	for tech, rules := range r.Rules {
		for _, rule := range rules {
			sig := signature.Signature{Name: tech, Match: signature.Regex, Patterns: []string{rule.Pattern}}
			if err := sig.Validate(); err != nil {
				return err
			}
			switch rule.Source {
			case SourceBody:
			case SourceHeader:
				if rule.Header == "" {
					return fmt.Errorf("%w: %s: header rule without header name", errs.ErrInvalidTable, tech)
				}
			case SourcePath:
				if rule.Path == "" {
					return fmt.Errorf("%w: %s: path rule without path", errs.ErrInvalidTable, tech)
				}
			default:
				return fmt.Errorf("%w: %s: unknown rule source %q", errs.ErrInvalidTable, tech, rule.Source)
			}
		}
	}
	return nil
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
