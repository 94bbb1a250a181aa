package version

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a version string with a segment that is not a non-negative integer.
type ParseError struct {
	Version string
	Segment string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed version %q: segment %q is not a non-negative integer", e.Version, e.Segment)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse splits a dotted version into numeric segments.
func Parse(v string) ([]int, error) {
	parts := strings.Split(v, ".")
	segs := make([]int, 0, len(parts))
	for _, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return nil, &ParseError{Version: v, Segment: part}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &ParseError{Version: v, Segment: part, Err: err}
		}
		segs = append(segs, n)
	}
	return segs, nil
}

// Compare returns -1, 0 or 1 as a is older than, equal to or newer than b.
// When every shared segment is equal the shorter version is the older one.
func Compare(a, b string) (int, error) {
	as, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bs, err := Parse(b)
	if err != nil {
		return 0, err
	}

	for i := 0; i < min(len(as), len(bs)); i++ {
		switch {
		case as[i] < bs[i]:
			return -1, nil
		case as[i] > bs[i]:
			return 1, nil
		}
	}

	switch {
	case len(as) < len(bs):
		return -1, nil
	case len(as) > len(bs):
		return 1, nil
	}
	return 0, nil
}

// IsOutdated reports whether v is older than latest.
func IsOutdated(v, latest string) (bool, error) {
	c, err := Compare(v, latest)
	if err != nil {
		return false, err
	}
	return c < 0, nil
}

// MajorBelow reports whether the major segment of v is below threshold.
// A threshold of zero or less never flags.
func MajorBelow(v string, threshold int) (bool, error) {
	segs, err := Parse(v)
	if err != nil {
		return false, err
	}
	return segs[0] < threshold, nil
}
