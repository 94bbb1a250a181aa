package platform

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/khanhnv2901/seca-recon/internal/fetch"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"github.com/khanhnv2901/seca-recon/internal/signature"
	"github.com/khanhnv2901/seca-recon/internal/target"
	"github.com/khanhnv2901/seca-recon/internal/version"
	"github.com/sourcegraph/conc/pool"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
)

// SiteInfo collects homepage metadata. On a homepage failure the URL and
// domain are still filled in and the error is returned alongside.
func (p *Probe) SiteInfo(ctx context.Context, targetURL string) (SiteInfo, error) {
	info := SiteInfo{
		URL:    targetURL,
		HTTPS:  strings.HasPrefix(strings.ToLower(targetURL), "https://"),
		Domain: domainOf(targetURL),
	}

	home, err := p.homepage(ctx, targetURL)
	if err != nil {
		return info, err
	}

	info.StatusCode = home.StatusCode
	info.ContentType = home.Header.Get("Content-Type")
	info.Server = home.Header.Get("Server")
	info.SecurityHeaders = SecurityHeaderPresence(home.Header)

	var iconHref string
	if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(home.Body)); derr == nil {
		info.Title = strings.TrimSpace(doc.Find("title").First().Text())
		info.Description, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
		info.Keywords, _ = doc.Find(`meta[name="keywords"]`).First().Attr("content")
		doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			rel, _ := s.Attr("rel")
			if !slices.Contains(strings.Fields(strings.ToLower(rel)), "icon") {
				return true
			}
			iconHref, _ = s.Attr("href")
			return iconHref == ""
		})
	}

	if res, rerr := p.get(ctx, targetURL, "/robots.txt"); rerr == nil {
		info.RobotsTxt = res.OK()
	}
	if res, rerr := p.get(ctx, targetURL, "/sitemap.xml"); rerr == nil {
		info.SitemapXML = res.OK()
	}

	if iconHref == "" {
		iconHref = "/favicon.ico"
	}
	base := home.FinalURL
	if base == "" {
		base = targetURL
	}
	if res, rerr := p.Fetcher.Fetch(ctx, fetch.Join(base, iconHref)); rerr == nil && res.OK() && res.Body != "" {
		h := FaviconHash([]byte(res.Body))
		info.FaviconHash = &h
	}

	return info, nil
}

func domainOf(raw string) string {
	if t, err := target.Parse(raw); err == nil {
		return t.Domain
	}
	return ""
}

// FaviconHash returns the murmur3 hash of the base64 encoded icon, wrapped at
// 76 columns with a trailing newline, as search engines index it.
func FaviconHash(data []byte) int32 {
	if len(data) > consts.FaviconMaxBytes {
		data = data[:consts.FaviconMaxBytes]
	}
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteByte('\n')
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteByte('\n')
	// The streaming hasher reads blocks through indexed slices; murmur3.Sum32
	// walks a raw uintptr that checkptr rejects under -race.
	h := murmur3.New32()
	_, _ = h.Write([]byte(b.String()))
	return int32(h.Sum32())
}

// GetInfo resolves the platform version, the active theme and the installed
// assets. Each part fails on its own and is left empty.
func (p *Probe) GetInfo(ctx context.Context, targetURL string) (Info, error) {
	cfg := p.Config
	info := Info{Platform: cfg.Name, Baseline: cfg.Baseline, Assets: []Asset{}}

	home, err := p.homepage(ctx, targetURL)
	var content string
	var headers http.Header
	if err == nil && home.OK() {
		content, headers = home.Body, home.Header
	}

	if v, ok := p.coreVersion(ctx, targetURL, content, headers); ok {
		info.Version = v
		if outdated, oerr := version.IsOutdated(v, cfg.Baseline); oerr == nil {
			info.Outdated = &outdated
		} else {
			p.Logger.Debug("version comparison skipped", zap.String("version", v), zap.Error(oerr))
		}
	}

	if content != "" {
		info.Theme = p.theme(ctx, targetURL, content)
		info.Assets = p.assets(ctx, targetURL, content)
	}

	return info, err
}

func (p *Probe) coreVersion(ctx context.Context, targetURL, content string, headers http.Header) (string, bool) {
	if len(p.Config.VersionRules) == 0 {
		return "", false
	}
	return p.Resolver.Resolve(ctx, coreKey(p.Config), content, headers, p.aux(targetURL))
}

// theme returns the first theme referenced by the homepage.
func (p *Probe) theme(ctx context.Context, targetURL, content string) *Asset {
	spec := p.Config.Theme
	if spec == nil {
		return nil
	}
	names := assetNames(spec, content)
	if len(names) == 0 {
		return nil
	}
	a := p.describe(ctx, targetURL, spec, content, names[0])
	return &a
}

// assets returns every distinct asset referenced by the homepage, sorted by
// name. Manifest lookups run on a bounded pool.
func (p *Probe) assets(ctx context.Context, targetURL, content string) []Asset {
	spec := p.Config.Assets
	if spec == nil {
		return []Asset{}
	}
	names := assetNames(spec, content)
	out := make([]Asset, len(names))

	wp := pool.New().WithMaxGoroutines(consts.AssetWorkers)
	for i, name := range names {
		wp.Go(func() {
			out[i] = p.describe(ctx, targetURL, spec, content, name)
		})
	}
	wp.Wait()

	slices.SortFunc(out, func(a, b Asset) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// assetNames extracts distinct raw names in first-seen order.
func assetNames(spec *AssetSpec, content string) []string {
	re, err := signature.Compile(spec.NamePattern)
	if err != nil {
		return nil
	}
	var names []string
	seen := make(map[string]struct{})
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// describe fills in version and author for one asset. An asset whose version
// cannot be found is still returned.
func (p *Probe) describe(ctx context.Context, targetURL string, spec *AssetSpec, content, raw string) Asset {
	a := Asset{Kind: spec.Kind, Name: spec.NamePrefix + raw}

	if spec.InlineVersion != "" {
		if re, err := regexp.Compile(expandPattern(spec.InlineVersion, raw)); err == nil {
			if m := re.FindStringSubmatch(content); len(m) > 1 {
				a.Version = m[1]
			}
		}
	}

	if spec.Manifest != "" && (a.Version == "" || spec.ManifestAuthor != "") {
		path := strings.ReplaceAll(spec.Manifest, "{name}", url.PathEscape(raw))
		res, err := p.get(ctx, targetURL, path)
		if err == nil && res.OK() {
			if a.Version == "" {
				a.Version = capture(spec.ManifestVersion, res.Body)
			}
			a.Author = capture(spec.ManifestAuthor, res.Body)
		}
	}

	if a.Version != "" && spec.OutdatedMajorBelow > 0 {
		if below, err := version.MajorBelow(a.Version, spec.OutdatedMajorBelow); err == nil {
			latest := !below
			a.Latest = &latest
		}
	}
	return a
}

func capture(pattern, text string) string {
	if pattern == "" {
		return ""
	}
	re, err := signature.Compile(pattern)
	if err != nil {
		return ""
	}
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
