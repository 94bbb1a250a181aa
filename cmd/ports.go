package cmd

import (
	"fmt"
	"strconv"
	"strings"

	errs "github.com/khanhnv2901/seca-recon/internal/shared/errors"
)

const maxPort = 65535

// parsePorts expands a list such as "80,443,8000-8010" into port numbers,
// keeping first-seen order and dropping duplicates.
func parsePorts(spec string) ([]int, error) {
	var ports []int
	seen := make(map[int]struct{})
	add := func(p int) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		ports = append(ports, p)
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			p, err := parsePort(part)
			if err != nil {
				return nil, err
			}
			add(p)
			continue
		}

		start, err := parsePort(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidPortRange, part)
		}
		end, err := parsePort(strings.TrimSpace(hi))
		if err != nil || end < start {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidPortRange, part)
		}
		for p := start; p <= end; p++ {
			add(p)
		}
	}
	return ports, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > maxPort {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidPort, s)
	}
	return p, nil
}
