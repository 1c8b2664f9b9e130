//go:build linux
// +build linux

package netstate

import (
	"fmt"
	"os"
	"strings"

	"github.com/safchain/ethtool"
)

// DefaultCarrierReader is the default ethtool-backed carrier reader.
var DefaultCarrierReader CarrierReader = &EthtoolCarrierReader{}

// EthtoolCarrierReader reads physical link state via ethtool ioctls,
// with a sysfs fallback for virtual NICs that reject them.
type EthtoolCarrierReader struct{}

// HasCarrier reports whether the interface has link.
func (e *EthtoolCarrierReader) HasCarrier(iface string) (bool, error) {
	handle, err := ethtool.NewEthtool()
	if err != nil {
		return carrierFromSysfs(iface)
	}
	defer handle.Close()

	state, err := handle.LinkState(iface)
	if err != nil {
		return carrierFromSysfs(iface)
	}
	return state == 1, nil
}

func carrierFromSysfs(iface string) (bool, error) {
	data, err := os.ReadFile(fmt.Sprintf("/sys/class/net/%s/carrier", iface))
	if err != nil {
		return false, fmt.Errorf("cannot read carrier for %s: %w", iface, err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
