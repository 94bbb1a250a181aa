package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/seca-recon/internal/fetch"
	"github.com/khanhnv2901/seca-recon/internal/metrics"
	"github.com/khanhnv2901/seca-recon/internal/platform"
	"github.com/khanhnv2901/seca-recon/internal/portscan"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"github.com/khanhnv2901/seca-recon/internal/target"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Auto selects the platform by verification: WordPress, then Joomla, else web.
const Auto = "auto"

// autoOrder lists the platforms tried by Auto before falling back to web.
var autoOrder = []string{platform.WordPress, platform.Joomla}

// Request describes one scan.
type Request struct {
	Target   string
	Platform string        // web, wordpress, joomla or auto; empty means web
	Ports    []int         // empty means constants.DefaultPorts
	Timeout  time.Duration // per fetch and per connect
}

// Orchestrator runs the four checks of a scan concurrently and merges their results.
type Orchestrator struct {
	Retries        int
	CheckTimeout   time.Duration
	MaxPortWorkers int
	Logger         *zap.Logger
	Metrics        *metrics.Metrics

	// Fetcher overrides the per-request HTTP fetcher.
	Fetcher platform.Getter
}

// Run validates the request and scans the target. Only an invalid target
// fails the call; every other failure is recorded in Result.Errors and leaves
// the affected part of the result empty.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	info, err := target.Parse(req.Target)
	if err != nil {
		return nil, err
	}
	// Every check works on the validated form, never the raw input.
	req.Target = info.FullURL

	id := uuid.NewString()
	log := o.logger().With(zap.String("scan_id", id), zap.String("url", req.Target))
	res := newResult(id, req.Target)
	log.Debug("scan state", zap.String("state", string(StateInit)))

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultTimeout
	}
	getter := o.Fetcher
	if getter == nil {
		getter = fetch.New(timeout, o.Retries, log, o.Metrics)
	}

	probe, err := o.selectProbe(ctx, req, getter, log)
	if err != nil {
		return nil, err
	}
	res.Platform = probe.Name()

	ports := req.Ports
	if len(ports) == 0 {
		ports = consts.DefaultPorts
	}
	prober := &portscan.Prober{
		Timeout:    timeout,
		MaxWorkers: o.MaxPortWorkers,
		Logger:     log,
		Metrics:    o.Metrics,
	}

	log.Debug("scan state", zap.String("state", string(StateProbing)))

	var (
		siteInfo platform.SiteInfo
		pinfo    platform.Info
		techs    []platform.DetectedTechnology
		vulns    []platform.Vulnerability
		open     []portscan.OpenPort

		mu     sync.Mutex
		failed error
	)

	var g errgroup.Group
	g.SetLimit(consts.OrchestratorChecks)

	run := func(name string, check func(ctx context.Context) error) {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, o.checkTimeout())
			defer cancel()

			start := time.Now()
			err := check(checkCtx)
			if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("timed out after %s: %w", o.checkTimeout(), context.DeadlineExceeded)
			}
			o.Metrics.ObserveCheck(name, time.Since(start), err)

			if err != nil {
				log.Warn("check failed", zap.String("check", name), zap.Error(err))
				mu.Lock()
				failed = multierr.Append(failed, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	run(CheckInfo, func(ctx context.Context) error {
		si, err1 := probe.SiteInfo(ctx, req.Target)
		pi, err2 := probe.GetInfo(ctx, req.Target)
		siteInfo, pinfo = si, pi
		return multierr.Combine(err1, err2)
	})
	run(CheckTechnologies, func(ctx context.Context) error {
		var err error
		techs, err = probe.DetectTechnologies(ctx, req.Target)
		return err
	})
	run(CheckVulnerabilities, func(ctx context.Context) error {
		var err error
		vulns, err = probe.ScanVulnerabilities(ctx, req.Target)
		return err
	})
	run(CheckPorts, func(ctx context.Context) error {
		open = prober.Scan(ctx, info.Host, ports)
		return ctx.Err()
	})

	_ = g.Wait()

	log.Debug("scan state", zap.String("state", string(StateAggregating)))
	res.SiteInfo = siteInfo
	res.Info = pinfo
	if res.Info.Assets == nil {
		res.Info.Assets = []platform.Asset{}
	}
	if techs != nil {
		res.Technologies = techs
	}
	if vulns != nil {
		res.Vulnerabilities = vulns
	}
	if open != nil {
		res.OpenPorts = open
	}
	for _, err := range multierr.Errors(failed) {
		res.Errors = append(res.Errors, err.Error())
	}
	for _, v := range res.Vulnerabilities {
		o.Metrics.ObserveFinding(string(v.Severity))
	}
	res.CompletedAt = time.Now().UTC()

	log.Info("scan finished",
		zap.String("state", string(StateDone)),
		zap.String("platform", res.Platform),
		zap.Int("technologies", len(res.Technologies)),
		zap.Int("vulnerabilities", len(res.Vulnerabilities)),
		zap.Int("open_ports", len(res.OpenPorts)),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.Duration()),
	)
	return res, nil
}

// Detect returns the platform a target runs, trying WordPress then Joomla and
// falling back to web.
func (o *Orchestrator) Detect(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	info, err := target.Parse(rawURL)
	if err != nil {
		return "", err
	}
	rawURL = info.FullURL
	getter := o.Fetcher
	if getter == nil {
		getter = fetch.New(timeout, o.Retries, o.logger(), o.Metrics)
	}
	probe, err := o.selectProbe(ctx, Request{Target: rawURL, Platform: Auto}, getter, o.logger())
	if err != nil {
		return "", err
	}
	return probe.Name(), nil
}

func (o *Orchestrator) selectProbe(ctx context.Context, req Request, getter platform.Getter, log *zap.Logger) (*platform.Probe, error) {
	name := req.Platform
	if name == "" {
		name = platform.Web
	}
	if name != Auto {
		return platform.ForPlatform(name, getter, log)
	}

	for _, candidate := range autoOrder {
		probe, err := platform.ForPlatform(candidate, getter, log)
		if err != nil {
			return nil, err
		}
		if probe.Verify(ctx, req.Target) {
			log.Info("platform detected", zap.String("platform", candidate))
			return probe, nil
		}
	}
	return platform.ForPlatform(platform.Web, getter, log)
}

func (o *Orchestrator) checkTimeout() time.Duration {
	if o.CheckTimeout <= 0 {
		return consts.DefaultCheckTimeout
	}
	return o.CheckTimeout
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
