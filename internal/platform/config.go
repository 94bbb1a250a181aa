package platform

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/khanhnv2901/seca-recon/internal/version"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tablesFS embed.FS

// Built-in platform names.
const (
	Web       = "web"
	WordPress = "wordpress"
	Joomla    = "joomla"
)

var platformFiles = []string{"tables/generic.yaml", "tables/wordpress.yaml", "tables/joomla.yaml"}

// AssetSpec describes how a theme or an extension is located in the homepage
// and where its manifest lives. "{name}" in InlineVersion and Manifest is
// replaced by the captured asset name.
type AssetSpec struct {
	Kind               string `yaml:"kind"`
	NamePattern        string `yaml:"name_pattern"`
	NamePrefix         string `yaml:"name_prefix,omitempty"`
	InlineVersion      string `yaml:"inline_version,omitempty"`
	Manifest           string `yaml:"manifest,omitempty"`
	ManifestVersion    string `yaml:"manifest_version,omitempty"`
	ManifestAuthor     string `yaml:"manifest_author,omitempty"`
	OutdatedMajorBelow int    `yaml:"outdated_major_below,omitempty"`
}

// SideChecks toggles the header, cookie and transport checks that are not
// expressed as signatures.
type SideChecks struct {
	SecurityHeaders bool `yaml:"security_headers"`
	Cookies         bool `yaml:"cookies"`
	PlainHTTP       bool `yaml:"plain_http"`
}

// Config is the static table that parameterizes a Probe.
type Config struct {
	Name            string                `yaml:"name"`
	DisplayName     string                `yaml:"display_name"`
	Keyword         string                `yaml:"keyword,omitempty"`
	Baseline        string                `yaml:"baseline,omitempty"`
	FoundThreshold  int                   `yaml:"found_threshold,omitempty"`
	AdminPath       string                `yaml:"admin_path,omitempty"`
	Paths           []string              `yaml:"paths,omitempty"`
	Indicators      []string              `yaml:"indicators,omitempty"`
	VersionRules    []version.Rule        `yaml:"version_rules,omitempty"`
	Theme           *AssetSpec            `yaml:"theme,omitempty"`
	Assets          *AssetSpec            `yaml:"assets,omitempty"`
	SideChecks      SideChecks            `yaml:"side_checks"`
	Vulnerabilities []signature.Signature `yaml:"vulnerabilities,omitempty"`
}

// reachableOnly reports a config without verification signals; such a
// platform verifies for any reachable homepage.
func (c *Config) reachableOnly() bool {
	return len(c.Paths) == 0 && len(c.Indicators) == 0 && c.Keyword == ""
}

// Validate checks the table for unknown enums and patterns that do not compile.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: platform without name", errs.ErrInvalidTable)
	}

	err := signature.ValidateAll(c.Vulnerabilities)
	err = multierr.Append(err, version.NewResolver(map[string][]version.Rule{c.Name: c.VersionRules}, nil).Validate())

	if len(c.VersionRules) > 0 {
		if _, perr := version.Parse(c.Baseline); perr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s: baseline: %v", errs.ErrInvalidTable, c.Name, perr))
		}
	}
	if c.Paths != nil && c.FoundThreshold <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %s: found_threshold must be positive", errs.ErrInvalidTable, c.Name))
	}

	for _, spec := range []*AssetSpec{c.Theme, c.Assets} {
		if spec == nil {
			continue
		}
		err = multierr.Append(err, spec.validate(c.Name))
	}
	return err
}

func (s *AssetSpec) validate(platform string) error {
	if s.NamePattern == "" {
		return fmt.Errorf("%w: %s: %s spec without name_pattern", errs.ErrInvalidTable, platform, s.Kind)
	}
	var err error
	for _, p := range []string{s.NamePattern, s.ManifestVersion, s.ManifestAuthor, expandPattern(s.InlineVersion, "probe")} {
		if p == "" {
			continue
		}
		if _, cerr := regexp.Compile(p); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s: %s: %v", errs.ErrInvalidTable, platform, s.Kind, cerr))
		}
	}
	return err
}

// expandPattern substitutes a literal asset name into a per-asset pattern.
func expandPattern(pattern, name string) string {
	return strings.ReplaceAll(pattern, "{name}", regexp.QuoteMeta(name))
}

// ParseConfig decodes and validates a platform table.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidTable, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Technology is one entry of the shared technology fingerprint table.
type Technology struct {
	signature.Signature `yaml:",inline"`
	Versions            []version.Rule `yaml:"versions,omitempty"`
}

type technologyTable struct {
	Technologies []Technology `yaml:"technologies"`
}

// ParseTechnologies decodes and validates a technology table.
func ParseTechnologies(data []byte) ([]Technology, error) {
	var table technologyTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidTable, err)
	}

	var err error
	rules := make(map[string][]version.Rule, len(table.Technologies))
	for _, t := range table.Technologies {
		err = multierr.Append(err, t.Signature.Validate())
		rules[t.Name] = t.Versions
	}
	err = multierr.Append(err, version.NewResolver(rules, nil).Validate())
	if err != nil {
		return nil, err
	}
	return table.Technologies, nil
}

var (
	loadOnce     sync.Once
	loadErr      error
	configs      map[string]*Config
	technologies []Technology
)

func load() {
	configs = make(map[string]*Config, len(platformFiles))
	for _, file := range platformFiles {
		data, err := tablesFS.ReadFile(file)
		if err != nil {
			loadErr = multierr.Append(loadErr, err)
			continue
		}
		cfg, err := ParseConfig(data)
		if err != nil {
			loadErr = multierr.Append(loadErr, fmt.Errorf("%s: %w", file, err))
			continue
		}
		configs[cfg.Name] = cfg
	}

	data, err := tablesFS.ReadFile("tables/technologies.yaml")
	if err != nil {
		loadErr = multierr.Append(loadErr, err)
		return
	}
	technologies, err = ParseTechnologies(data)
	if err != nil {
		loadErr = multierr.Append(loadErr, fmt.Errorf("tables/technologies.yaml: %w", err))
	}
}

// Lookup returns the built-in table for a platform name.
func Lookup(name string) (*Config, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	cfg, ok := configs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownPlatform, name)
	}
	return cfg, nil
}

// Names lists the built-in platforms.
func Names() []string {
	loadOnce.Do(load)
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Technologies returns the built-in technology table.
func Technologies() ([]Technology, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	return technologies, nil
}
