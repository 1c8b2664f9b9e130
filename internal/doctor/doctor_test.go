package doctor

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"

	"grimm.is/netfix/internal/backup"
	"grimm.is/netfix/internal/clock"
	"grimm.is/netfix/internal/config"
	"grimm.is/netfix/internal/logging"
	"grimm.is/netfix/internal/netstate"
)

func testLogger() (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf}), &buf
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.Probe.ResolveHost = "probe.test"
	return s
}

func testStore(t *testing.T) *backup.Store {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	return backup.NewStore(t.TempDir(), clk)
}

type stubConfirmer struct {
	answer bool
	err    error
	asked  bool
}

func (s *stubConfirmer) Confirm(title string) (bool, error) {
	s.asked = true
	return s.answer, s.err
}

type fixture struct {
	sys     netstate.System
	nl      *netstate.MockNetlinker
	sysc    *netstate.MockSystemController
	cmd     *netstate.MockCommandExecutor
	res     *netstate.MockResolver
	ping    *netstate.MockPinger
	dial    *netstate.MockDialer
	dnsq    *netstate.MockDNSQuerier
	fw      *netstate.MockFirewallReader
	carrier *netstate.MockCarrierReader
}

func device(name string, up bool) netlink.Link {
	attrs := netlink.LinkAttrs{Name: name, OperState: netlink.OperUp}
	if up {
		attrs.Flags = net.FlagUp
	}
	return &netlink.Device{LinkAttrs: attrs}
}

func addr(cidr string) netlink.Addr {
	ip, ipnet, _ := net.ParseCIDR(cidr)
	ipnet.IP = ip
	return netlink.Addr{IPNet: ipnet}
}

// healthyFixture mocks a host where every diagnostic passes, except for
// the missing default route when noDefaultRoute is set.
func healthyFixture(noDefaultRoute bool) *fixture {
	f := &fixture{
		nl:      new(netstate.MockNetlinker),
		sysc:    new(netstate.MockSystemController),
		cmd:     new(netstate.MockCommandExecutor),
		res:     new(netstate.MockResolver),
		ping:    new(netstate.MockPinger),
		dial:    new(netstate.MockDialer),
		dnsq:    new(netstate.MockDNSQuerier),
		fw:      new(netstate.MockFirewallReader),
		carrier: new(netstate.MockCarrierReader),
	}
	f.sys = netstate.System{
		NL: f.nl, Sys: f.sysc, Cmd: f.cmd, Res: f.res,
		Ping: f.ping, Dial: f.dial, DNS: f.dnsq, FW: f.fw, Carrier: f.carrier,
	}

	lo := device("lo", true)
	eth0 := device("eth0", true)
	f.nl.On("LinkList").Return([]netlink.Link{lo, eth0}, nil)
	f.nl.On("LinkByName", "lo").Return(lo, nil)
	f.carrier.On("HasCarrier", "eth0").Return(true, nil)
	f.nl.On("AddrList", eth0, netlink.FAMILY_ALL).Return([]netlink.Addr{addr("192.168.1.42/24")}, nil)
	f.nl.On("AddrList", eth0, netlink.FAMILY_V4).Return([]netlink.Addr{addr("192.168.1.42/24")}, nil)
	f.nl.On("AddrList", lo, netlink.FAMILY_V4).Return(nil, nil)

	f.sysc.On("ReadSysctl", "net.ipv4.ip_forward").Return("0", nil)
	if noDefaultRoute {
		f.nl.On("RouteList", nil, netlink.FAMILY_V4).Return(nil, nil)
	} else {
		f.nl.On("RouteList", nil, netlink.FAMILY_V4).
			Return([]netlink.Route{{Gw: net.ParseIP("192.168.1.1")}}, nil)
	}

	f.sysc.On("ReadFile", "/etc/resolv.conf").Return([]byte("nameserver 1.1.1.1\n"), nil)
	f.dnsq.On("Query", mock.Anything, "1.1.1.1", "probe.test", mock.Anything).
		Return([]string{"93.184.216.34"}, 0, nil)
	f.res.On("LookupHost", mock.Anything, "probe.test").Return([]string{"93.184.216.34"}, nil)

	f.ping.On("Ping", mock.Anything, "1.1.1.1", 3, mock.Anything).
		Return(&netstate.PingStats{Sent: 3, Received: 3}, nil)
	f.dial.On("DialTimeout", "tcp", "1.1.1.1:443", mock.Anything).Return(nil)

	f.fw.On("Snapshot").Return(&netstate.FirewallSnapshot{
		Tables: 1,
		Chains: []netstate.FirewallChain{{Table: "filter", Family: "inet", Name: "input", InputHook: true, RuleCount: 4}},
	}, nil)

	f.cmd.On("RunCommand", "systemctl", "is-active", "NetworkManager").Return("active\n", nil)
	f.cmd.On("RunCommand", "systemctl", "is-active", "systemd-networkd").Return("inactive\n", nil)
	f.cmd.On("RunCommand", "nmcli", "networking").Return("enabled\n", nil)
	return f
}

func newDoctor(t *testing.T, f *fixture, run config.RunConfig) *Doctor {
	t.Helper()
	log, _ := testLogger()
	d := New(f.sys, testStore(t), testSettings(), run, log)
	d.Elevated = func() bool { return true }
	return d
}

func TestRunHealthyHostExitsZero(t *testing.T) {
	f := healthyFixture(false)
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnose})

	if got := d.Run(context.Background()); got != ExitOK {
		t.Errorf("Run() = %d, want %d", got, ExitOK)
	}
	f.nl.AssertNotCalled(t, "RouteReplace", mock.Anything)
}

func TestRunReportsWithoutRepairing(t *testing.T) {
	f := healthyFixture(true)
	confirm := &stubConfirmer{}
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnose})
	d.Confirm = confirm

	if got := d.Run(context.Background()); got != ExitIssues {
		t.Errorf("Run() = %d, want %d", got, ExitIssues)
	}
	if confirm.asked {
		t.Error("non-interactive run should not prompt")
	}
	f.nl.AssertNotCalled(t, "RouteReplace", mock.Anything)
}

func TestRunInteractiveDeclined(t *testing.T) {
	f := healthyFixture(true)
	confirm := &stubConfirmer{answer: false}
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdInteractive, Interactive: true})
	d.Confirm = confirm

	if got := d.Run(context.Background()); got != ExitIssues {
		t.Errorf("Run() = %d, want %d", got, ExitIssues)
	}
	if !confirm.asked {
		t.Error("interactive run should prompt")
	}
	f.nl.AssertNotCalled(t, "RouteReplace", mock.Anything)
}

func TestRunAutoRepairInstallsRoute(t *testing.T) {
	f := healthyFixture(true)
	// Repair path: route gets installed, shows up on the verify probe.
	f.nl.On("RouteReplace", mock.MatchedBy(func(r *netlink.Route) bool {
		return r.Gw.Equal(net.ParseIP("192.168.1.1"))
	})).Return(nil).Run(func(args mock.Arguments) {
		f.nl.ExpectedCalls = replaceRouteList(f.nl.ExpectedCalls)
	})
	f.cmd.On("RunCommand", "systemctl", "restart", "NetworkManager").Return("", nil)

	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnose, AutoRepair: true})
	if got := d.Run(context.Background()); got != ExitOK {
		t.Errorf("Run() = %d, want %d", got, ExitOK)
	}
	f.nl.AssertCalled(t, "RouteReplace", mock.Anything)
}

// replaceRouteList swaps the empty RouteList expectation for one that
// returns the installed default route.
func replaceRouteList(calls []*mock.Call) []*mock.Call {
	for _, c := range calls {
		if c.Method == "RouteList" {
			c.ReturnArguments = mock.Arguments{
				[]netlink.Route{{Gw: net.ParseIP("192.168.1.1")}}, nil,
			}
		}
	}
	return calls
}

func TestRepairWithoutElevationExitsPrivilege(t *testing.T) {
	f := healthyFixture(false)
	log, buf := testLogger()
	d := New(f.sys, testStore(t), testSettings(), config.RunConfig{Command: config.CmdRepairDNS}, log)
	d.Elevated = func() bool { return false }

	if got := d.Run(context.Background()); got != ExitPrivilege {
		t.Errorf("Run() = %d, want %d", got, ExitPrivilege)
	}
	if !strings.Contains(buf.String(), "elevation") {
		t.Error("expected the privilege refusal to be logged")
	}
	f.sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestRepairDryRunSkipsPrivilegeGate(t *testing.T) {
	f := healthyFixture(false)
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdRepairDNS, DryRun: true})
	d.Elevated = func() bool { return false }

	if got := d.Run(context.Background()); got != ExitOK {
		t.Errorf("Run() = %d, want %d", got, ExitOK)
	}
	f.sysc.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSingleDiagnoseDomain(t *testing.T) {
	f := healthyFixture(false)
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnoseRouting})

	if got := d.Run(context.Background()); got != ExitOK {
		t.Errorf("Run() = %d, want %d", got, ExitOK)
	}
	// Only routing checks should have probed the system.
	f.ping.AssertNotCalled(t, "Ping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.fw.AssertNotCalled(t, "Snapshot")
}

func TestFinalVerifyCountsBothProbes(t *testing.T) {
	f := healthyFixture(false)
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnose})
	if got := d.FinalVerify(context.Background()); got != 0 {
		t.Errorf("FinalVerify() = %d, want 0", got)
	}

	broken := &fixture{
		ping: new(netstate.MockPinger),
		res:  new(netstate.MockResolver),
	}
	broken.sys = netstate.System{Ping: broken.ping, Res: broken.res}
	broken.ping.On("Ping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&netstate.PingStats{Sent: 3, Received: 0}, nil)
	broken.res.On("LookupHost", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	d = newDoctor(t, broken, config.RunConfig{Command: config.CmdDiagnose})
	if got := d.FinalVerify(context.Background()); got != 2 {
		t.Errorf("FinalVerify() = %d, want 2", got)
	}
}

func TestRunIDIsStablePerRun(t *testing.T) {
	f := healthyFixture(false)
	d := newDoctor(t, f, config.RunConfig{Command: config.CmdDiagnose})
	if len(d.RunID()) != 8 {
		t.Errorf("RunID() = %q, want 8 characters", d.RunID())
	}
	if d.RunID() != d.RunID() {
		t.Error("RunID should not change between calls")
	}
}
