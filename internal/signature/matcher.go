package signature

import (
	"net/http"
	"strings"
)

// Hit is a signature that matched, with the pattern that produced it.
type Hit struct {
	Signature  Signature  `json:"signature"`
	Pattern    string     `json:"pattern"`
	Evidence   string     `json:"evidence"`
	Confidence Confidence `json:"confidence"`
}

// Match tests each signature against content (or the named response header)
// and returns the ones that hit, in table order. Within a signature the first
// matching pattern wins. Matching is case-sensitive.
func Match(content string, headers http.Header, sigs []Signature) []Hit {
	var hits []Hit
	for _, sig := range sigs {
		if m, ok := First(content, headers, sig); ok {
			hits = append(hits, m)
		}
	}
	return hits
}

// First tests a single signature. A signature without patterns never matches.
func First(content string, headers http.Header, sig Signature) (Hit, bool) {
	target := content
	if sig.Header != "" {
		target = headers.Get(sig.Header)
	}

	for _, pattern := range sig.Patterns {
		evidence, ok := test(sig.Discipline(), pattern, target)
		if !ok {
			continue
		}
		conf := ConfidenceMedium
		if sig.Header != "" || sig.Discipline() == Regex {
			conf = ConfidenceHigh
		}
		return Hit{Signature: sig, Pattern: pattern, Evidence: evidence, Confidence: conf}, true
	}
	return Hit{}, false
}

func test(d Discipline, pattern, target string) (string, bool) {
	if pattern == "" {
		return "", false
	}

	if d != Regex {
		if strings.Contains(target, pattern) {
			return pattern, true
		}
		return "", false
	}

	re, err := Compile(pattern)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(target)
	switch {
	case m == nil:
		return "", false
	case len(m) > 1 && m[1] != "":
		return m[1], true
	default:
		return m[0], true
	}
}
