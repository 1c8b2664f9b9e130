package netstate

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/miekg/dns"
	probing "github.com/prometheus-community/pro-bing"
)

// Default instances of the real implementations.
var (
	DefaultSystemController SystemController = &RealSystemController{}
	DefaultCommandExecutor  CommandExecutor  = &RealCommandExecutor{}
	DefaultResolver         Resolver         = &RealResolver{}
	DefaultPinger           Pinger           = &RealPinger{}
	DefaultDialer           Dialer           = &RealDialer{}
	DefaultDNSQuerier       DNSQuerier       = &RealDNSQuerier{}
)

// RealSystemController implements SystemController with os functions.
type RealSystemController struct{}

// ReadSysctl reads a sysctl value. A dotted name is converted to its
// /proc/sys path.
func (r *RealSystemController) ReadSysctl(path string) (string, error) {
	data, err := os.ReadFile(sysctlPath(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func sysctlPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/proc/sys/" + strings.ReplaceAll(path, ".", "/")
	}
	return path
}

// ReadFile reads a file.
func (r *RealSystemController) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes a file.
func (r *RealSystemController) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Remove removes a file.
func (r *RealSystemController) Remove(path string) error {
	return os.Remove(path)
}

// Stat stats a file.
func (r *RealSystemController) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// IsNotExist reports whether err indicates a missing file.
func (r *RealSystemController) IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// RealCommandExecutor implements CommandExecutor with os/exec.
type RealCommandExecutor struct{}

// RunCommand runs a command and returns its combined output.
func (r *RealCommandExecutor) RunCommand(name string, arg ...string) (string, error) {
	cmd := exec.Command(name, arg...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("command %s %v failed: %w, output: %s", name, arg, err, string(output))
	}
	return string(output), nil
}

// RealResolver wraps the system resolver.
type RealResolver struct{}

// LookupHost resolves a hostname through the system resolver.
func (r *RealResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// RealPinger sends ICMP echo requests via pro-bing.
type RealPinger struct{}

// Ping sends count echo requests to addr and waits up to timeout.
func (p *RealPinger) Ping(ctx context.Context, addr string, count int, timeout time.Duration) (*PingStats, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = count
	pinger.Timeout = timeout
	// Raw ICMP sockets need elevation; fall back to UDP echo otherwise.
	pinger.SetPrivileged(os.Geteuid() == 0)

	if err := pinger.RunWithContext(ctx); err != nil {
		return nil, err
	}

	stats := pinger.Statistics()
	return &PingStats{
		Sent:     stats.PacketsSent,
		Received: stats.PacketsRecv,
		AvgRtt:   stats.AvgRtt,
	}, nil
}

// RealDialer attempts TCP connections with net.DialTimeout.
type RealDialer struct{}

// DialTimeout dials and immediately closes the connection.
func (d *RealDialer) DialTimeout(network, addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// RealDNSQuerier issues direct queries with miekg/dns.
type RealDNSQuerier struct{}

// Query sends an A query for name to the given nameserver.
func (q *RealDNSQuerier) Query(ctx context.Context, server, name string, timeout time.Duration) ([]string, int, error) {
	client := &dns.Client{Timeout: timeout}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	if !strings.Contains(server, ":") {
		server = net.JoinHostPort(server, "53")
	}

	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, 0, fmt.Errorf("query to %s failed: %w", server, err)
	}

	var addrs []string
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs, resp.Rcode, nil
}
