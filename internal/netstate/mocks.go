package netstate

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vishvananda/netlink"
)

// MockNetlinker is a mock implementation of the Netlinker interface.
type MockNetlinker struct {
	mock.Mock
}

func (m *MockNetlinker) LinkByName(name string) (netlink.Link, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(netlink.Link), args.Error(1)
}

func (m *MockNetlinker) LinkList() ([]netlink.Link, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]netlink.Link), args.Error(1)
}

func (m *MockNetlinker) LinkSetUp(link netlink.Link) error {
	args := m.Called(link)
	return args.Error(0)
}

func (m *MockNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	args := m.Called(link, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]netlink.Addr), args.Error(1)
}

func (m *MockNetlinker) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	args := m.Called(link, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]netlink.Route), args.Error(1)
}

func (m *MockNetlinker) RouteReplace(route *netlink.Route) error {
	args := m.Called(route)
	return args.Error(0)
}

func (m *MockNetlinker) RouteDel(route *netlink.Route) error {
	args := m.Called(route)
	return args.Error(0)
}

// MockSystemController is a mock implementation of SystemController.
type MockSystemController struct {
	mock.Mock
}

func (m *MockSystemController) ReadSysctl(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockSystemController) ReadFile(path string) ([]byte, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSystemController) WriteFile(path string, data []byte, perm os.FileMode) error {
	args := m.Called(path, data, perm)
	return args.Error(0)
}

func (m *MockSystemController) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSystemController) Stat(path string) (os.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(os.FileInfo), args.Error(1)
}

func (m *MockSystemController) IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// MockCommandExecutor is a mock implementation of CommandExecutor.
type MockCommandExecutor struct {
	mock.Mock
}

func (m *MockCommandExecutor) RunCommand(name string, arg ...string) (string, error) {
	callArgs := make([]interface{}, 0, len(arg)+1)
	callArgs = append(callArgs, name)
	for _, a := range arg {
		callArgs = append(callArgs, a)
	}
	args := m.Called(callArgs...)
	return args.String(0), args.Error(1)
}

// MockResolver is a mock implementation of Resolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockPinger is a mock implementation of Pinger.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context, addr string, count int, timeout time.Duration) (*PingStats, error) {
	args := m.Called(ctx, addr, count, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PingStats), args.Error(1)
}

// MockDialer is a mock implementation of Dialer.
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) DialTimeout(network, addr string, timeout time.Duration) error {
	args := m.Called(network, addr, timeout)
	return args.Error(0)
}

// MockDNSQuerier is a mock implementation of DNSQuerier.
type MockDNSQuerier struct {
	mock.Mock
}

func (m *MockDNSQuerier) Query(ctx context.Context, server, name string, timeout time.Duration) ([]string, int, error) {
	args := m.Called(ctx, server, name, timeout)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Int(1), args.Error(2)
}

// MockFirewallReader is a mock implementation of FirewallReader.
type MockFirewallReader struct {
	mock.Mock
}

func (m *MockFirewallReader) Snapshot() (*FirewallSnapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FirewallSnapshot), args.Error(1)
}

// MockCarrierReader is a mock implementation of CarrierReader.
type MockCarrierReader struct {
	mock.Mock
}

func (m *MockCarrierReader) HasCarrier(iface string) (bool, error) {
	args := m.Called(iface)
	return args.Bool(0), args.Error(1)
}
