package signature

import (
	"fmt"
	"regexp"
	"sync"

	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
	"go.uber.org/multierr"
)

// Severity is the declared risk tier of a vulnerability signature.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the three known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Discipline selects how a signature's patterns are tested.
type Discipline string

const (
	Substring Discipline = "substring"
	Regex     Discipline = "regex"
)

// Condition selects what counts as a hit for a path-based vulnerability signature.
type Condition string

const (
	// ConditionPattern requires a pattern match (the default).
	ConditionPattern Condition = "pattern"
	// ConditionReachable requires any non-404 response.
	ConditionReachable Condition = "reachable"
	// ConditionJSONList requires a 200 response carrying a non-empty JSON array.
	ConditionJSONList Condition = "json_list"
)

// Confidence tiers reported with a match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Signature is one named detection rule. Tables of signatures are loaded once
// and shared read-only between goroutines.
type Signature struct {
	Name          string     `yaml:"name" json:"name"`
	Description   string     `yaml:"description,omitempty" json:"description,omitempty"`
	Severity      Severity   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Match         Discipline `yaml:"match,omitempty" json:"match,omitempty"`
	Patterns      []string   `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Header        string     `yaml:"header,omitempty" json:"header,omitempty"`
	Path          string     `yaml:"path,omitempty" json:"path,omitempty"`
	Condition     Condition  `yaml:"condition,omitempty" json:"condition,omitempty"`
	EvidenceField string     `yaml:"evidence_field,omitempty" json:"evidence_field,omitempty"`
}

// Discipline returns the effective match discipline.
func (s Signature) Discipline() Discipline {
	if s.Match == "" {
		return Substring
	}
	return s.Match
}

// Cond returns the effective condition.
func (s Signature) Cond() Condition {
	if s.Condition == "" {
		return ConditionPattern
	}
	return s.Condition
}

// Validate checks the signature for unknown enum values and patterns that do not compile.
func (s Signature) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: signature without name", errs.ErrInvalidTable)
	}
	if s.Severity != "" && !s.Severity.Valid() {
		return fmt.Errorf("%w: %s: unknown severity %q", errs.ErrInvalidTable, s.Name, s.Severity)
	}

	switch s.Discipline() {
	case Substring:
	case Regex:
		for _, p := range s.Patterns {
			if _, err := Compile(p); err != nil {
				return fmt.Errorf("%w: %s: %v", errs.ErrInvalidTable, s.Name, err)
			}
		}
	default:
		return fmt.Errorf("%w: %s: unknown match discipline %q", errs.ErrInvalidTable, s.Name, s.Match)
	}

	switch s.Cond() {
	case ConditionPattern, ConditionReachable:
	case ConditionJSONList:
		if s.Path == "" {
			return fmt.Errorf("%w: %s: json_list requires a path", errs.ErrInvalidTable, s.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown condition %q", errs.ErrInvalidTable, s.Name, s.Condition)
	}
	return nil
}

// ValidateAll validates every signature and combines the failures.
func ValidateAll(sigs []Signature) error {
	var err error
	for _, s := range sigs {
		err = multierr.Append(err, s.Validate())
	}
	return err
}

var cache sync.Map

// Compile returns a compiled regexp for pattern, caching it process-wide.
func Compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}
