package platform

import (
	"context"

	"github.com/khanhnv2901/seca-recon/internal/signature"
	"go.uber.org/zap"
)

// DetectTechnologies fingerprints the homepage against the technology table
// and adds the Server and X-Powered-By values as technologies of their own.
func (p *Probe) DetectTechnologies(ctx context.Context, targetURL string) ([]DetectedTechnology, error) {
	techs := []DetectedTechnology{}

	home, err := p.homepage(ctx, targetURL)
	if err != nil {
		return techs, err
	}

	listed := make(map[string]struct{})
	for _, hit := range signature.Match(home.Body, home.Header, p.techSignatures) {
		t := DetectedTechnology{Name: hit.Signature.Name, Confidence: hit.Confidence}
		if v, ok := p.Resolver.Resolve(ctx, hit.Signature.Name, home.Body, home.Header, p.aux(targetURL)); ok {
			t.Version = v
			t.Confidence = signature.ConfidenceHigh
		}
		techs = append(techs, t)
		listed[t.Name] = struct{}{}
	}

	for _, h := range []string{"Server", "X-Powered-By"} {
		value := home.Header.Get(h)
		if value == "" {
			continue
		}
		if _, dup := listed[value]; dup {
			continue
		}
		techs = append(techs, DetectedTechnology{Name: value, Confidence: signature.ConfidenceHigh})
		listed[value] = struct{}{}
	}

	p.Logger.Debug("technologies detected", zap.String("url", targetURL), zap.Int("count", len(techs)))
	return techs, nil
}
