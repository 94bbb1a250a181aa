package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/khanhnv2901/seca-recon/internal/fetch"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/khanhnv2901/seca-recon/internal/version"
	"go.uber.org/zap"
)

// Getter is the fetch capability a Probe needs.
type Getter interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Probe runs platform checks described by a Config. A Probe holds no
// per-target state and may be shared between goroutines.
type Probe struct {
	Config       *Config
	Fetcher      Getter
	Resolver     *version.Resolver
	Technologies []Technology
	Logger       *zap.Logger

	techSignatures []signature.Signature
}

// New builds a probe for cfg using the built-in technology table.
func New(cfg *Config, f Getter, logger *zap.Logger) (*Probe, error) {
	techs, err := Technologies()
	if err != nil {
		return nil, err
	}
	return NewWithTechnologies(cfg, techs, f, logger), nil
}

// NewWithTechnologies builds a probe over an explicit technology table.
func NewWithTechnologies(cfg *Config, techs []Technology, f Getter, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("platform", cfg.Name))

	rules := make(map[string][]version.Rule, len(techs)+1)
	sigs := make([]signature.Signature, 0, len(techs))
	for _, t := range techs {
		rules[t.Name] = t.Versions
		sigs = append(sigs, t.Signature)
	}
	rules[coreKey(cfg)] = cfg.VersionRules

	return &Probe{
		Config:         cfg,
		Fetcher:        f,
		Resolver:       version.NewResolver(rules, logger),
		Technologies:   techs,
		Logger:         logger,
		techSignatures: sigs,
	}
}

// ForPlatform looks up a built-in table and builds its probe.
func ForPlatform(name string, f Getter, logger *zap.Logger) (*Probe, error) {
	cfg, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(cfg, f, logger)
}

// coreKey keys the platform's own version rules apart from the technology table.
func coreKey(cfg *Config) string {
	return "core:" + cfg.Name
}

// Name returns the platform name.
func (p *Probe) Name() string {
	return p.Config.Name
}

func (p *Probe) get(ctx context.Context, base, path string) (*fetch.Result, error) {
	return p.Fetcher.Fetch(ctx, fetch.Join(base, path))
}

func (p *Probe) homepage(ctx context.Context, target string) (*fetch.Result, error) {
	res, err := p.Fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%s homepage: %w", p.Config.Name, err)
	}
	return res, nil
}

func (p *Probe) aux(target string) version.AuxFetcher {
	return func(ctx context.Context, path string) (*fetch.Result, error) {
		return p.get(ctx, target, path)
	}
}

// Verify reports whether the target runs this platform. Diagnostic paths are
// probed in order and the third non-404 answer confirms. Otherwise the
// homepage is checked for indicator substrings, a generator header and a
// generator meta tag. A platform without such signals verifies any reachable
// homepage.
func (p *Probe) Verify(ctx context.Context, target string) bool {
	cfg := p.Config
	log := p.Logger.With(zap.String("url", target))

	if cfg.reachableOnly() {
		_, err := p.homepage(ctx, target)
		return err == nil
	}

	found := 0
	for _, path := range cfg.Paths {
		if ctx.Err() != nil {
			return false
		}
		res, err := p.get(ctx, target, path)
		if err != nil || !res.Found() {
			continue
		}
		found++
		log.Debug("diagnostic path found", zap.String("path", path), zap.Int("status", res.StatusCode))
		if found >= cfg.FoundThreshold {
			log.Info("platform confirmed by paths", zap.Int("found", found))
			return true
		}
	}

	home, err := p.homepage(ctx, target)
	if err != nil {
		log.Debug("platform not confirmed", zap.Error(err))
		return false
	}

	for _, indicator := range cfg.Indicators {
		if strings.Contains(home.Body, indicator) {
			log.Info("platform confirmed by indicator", zap.String("indicator", indicator))
			return true
		}
	}

	if cfg.Keyword == "" {
		return false
	}
	keyword := strings.ToLower(cfg.Keyword)
	for _, h := range []string{"Generator", "X-Generator"} {
		if strings.Contains(strings.ToLower(home.Header.Get(h)), keyword) {
			log.Info("platform confirmed by header", zap.String("header", h))
			return true
		}
	}

	if strings.Contains(strings.ToLower(metaGenerator(home.Body)), keyword) {
		log.Info("platform confirmed by generator meta tag")
		return true
	}

	log.Info("platform not confirmed", zap.Int("paths_found", found))
	return false
}

func metaGenerator(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[name="generator"]`).First().Attr("content")
	return content
}
