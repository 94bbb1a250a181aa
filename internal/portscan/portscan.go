package portscan

import (
	"context"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-recon/internal/metrics"
	consts "github.com/khanhnv2901/seca-recon/internal/shared/constants"
	"github.com/khanhnv2901/seca-recon/internal/target"
	"go.uber.org/zap"
)

// OpenPort contains information about an open port
type OpenPort struct {
	Port    int    `json:"port"`
	State   string `json:"state"`   // always "open"; closed ports are omitted
	Service string `json:"service"` // Common service name (e.g., "http", "ssh")
	Risk    string `json:"risk"`    // "critical", "high", "medium", "low", "info"
}

// Prober performs concurrent TCP connect probes against one host
type Prober struct {
	Timeout    time.Duration // Per-port connect timeout
	MaxWorkers int           // Concurrent probes, clamped to constants.MaxPortWorkers
	Resolver   *net.Resolver
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Scan resolves host once and reports the ports that accept a TCP connection,
// sorted ascending. Resolution failure yields an empty result.
func (p *Prober) Scan(ctx context.Context, host string, ports []int) []OpenPort {
	log := p.logger().With(zap.String("host", host))
	openPorts := []OpenPort{}

	ports = sanitizePorts(ports)
	if len(ports) == 0 {
		return openPorts
	}

	ip, err := p.resolve(ctx, host)
	if err != nil {
		log.Warn("host resolution failed, skipping port scan", zap.Error(err))
		return openPorts
	}

	maxWorkers := p.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = consts.DefaultPortWorkers
	}
	if maxWorkers > consts.MaxPortWorkers {
		maxWorkers = consts.MaxPortWorkers
	}
	if maxWorkers > len(ports) {
		maxWorkers = len(ports)
	}

	// Create worker pool
	portChan := make(chan int)
	resultChan := make(chan OpenPort, len(ports))
	var wg sync.WaitGroup

	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range portChan {
				if info, ok := p.checkPort(ctx, ip, port); ok {
					resultChan <- info
				}
			}
		}()
	}

	// Send ports to workers
	go func() {
		defer close(portChan)
		for _, port := range ports {
			select {
			case portChan <- port:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for info := range resultChan {
		openPorts = append(openPorts, info)
	}

	slices.SortFunc(openPorts, func(a, b OpenPort) int { return a.Port - b.Port })
	log.Debug("port scan finished", zap.String("ip", ip), zap.Int("probed", len(ports)), zap.Int("open", len(openPorts)))
	return openPorts
}

// checkPort makes a single connect attempt; any failure means closed.
func (p *Prober) checkPort(ctx context.Context, ip string, port int) (OpenPort, bool) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		p.Metrics.ObservePort(false)
		return OpenPort{}, false
	}
	_ = conn.Close()
	p.Metrics.ObservePort(true)

	return OpenPort{
		Port:    port,
		State:   "open",
		Service: ServiceName(port),
		Risk:    PortRisk(port),
	}, true
}

// resolve returns an address for host, preferring IPv4. Literal IPs are returned unchanged.
func (p *Prober) resolve(ctx context.Context, host string) (string, error) {
	if target.IsIP(host) {
		return net.ParseIP(host).String(), nil
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = consts.DefaultTimeout
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := resolver.LookupIPAddr(lookupCtx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

func (p *Prober) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// sanitizePorts drops out-of-range ports and duplicates, keeping first-seen order.
func sanitizePorts(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, port := range ports {
		if port < 1 || port > 65535 {
			continue
		}
		if _, dup := seen[port]; dup {
			continue
		}
		seen[port] = struct{}{}
		out = append(out, port)
	}
	return out
}

var services = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	465:  "smtps",
	587:  "submission",
	993:  "imaps",
	995:  "pop3s",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	8080: "http-proxy",
	8443: "https-alt",
}

// ServiceName returns the common service name for a port, or "unknown".
func ServiceName(port int) string {
	if service, ok := services[port]; ok {
		return service
	}
	return "unknown"
}

// PortRisk assigns a risk tier to an exposed port.
func PortRisk(port int) string {
	switch port {
	case 23, 3389: // Telnet, RDP
		return "critical"
	case 21, 22, 3306, 5432: // FTP, SSH, databases
		return "high"
	case 25, 110, 143, 465, 587, 993, 995, 8080, 8443: // Mail, HTTP alts
		return "medium"
	case 80, 443:
		return "low"
	}
	return "info"
}
