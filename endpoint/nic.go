package endpoint

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// InterfaceAddr returns the primary IPv4 address and the hardware address
// of the named interface, for callers that name an interface instead of a
// literal local address.
func InterfaceAddr(nic string) (net.IP, net.HardwareAddr, error) {
	link, err := netlink.LinkByName(nic)
	if err != nil {
		return nil, nil, fmt.Errorf("interface %s: %w", nic, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, nil, fmt.Errorf("interface %s addresses: %w", nic, err)
	}
	for _, addr := range addrs {
		if ip := addr.IP.To4(); ip != nil && ip.IsGlobalUnicast() {
			return ip, link.Attrs().HardwareAddr, nil
		}
	}
	return nil, nil, fmt.Errorf("no ipv4 address on interface %s", nic)
}
