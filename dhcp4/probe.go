package dhcp4

import "net"

// ProbeRequestList is the parameter request list carried by probe packets.
// The set and order are fixed: servers may log or key on the list, so it
// must not change between releases. The prober never reads the reply back.
var ProbeRequestList = []byte{
	byte(OptionSubnetMask),
	byte(OptionBroadcastAddress),
	byte(OptionTimeOffset),
	byte(OptionClasslessRouteFormat),
	byte(OptionRouter),
	byte(OptionDomainName),
	byte(OptionDomainSearch),
	byte(OptionDomainNameServer),
	byte(OptionHostName),
	byte(OptionBootFileName),
	byte(OptionTFTPServerName),
}

// DiscoverProbe builds the DISCOVER message the prober transmits.
//
// giaddr is the local address of the connected endpoint and hops is set to
// 1: the packet claims to come through a relay agent so the server unicasts
// its reply back to giaddr instead of broadcasting on its own segment.
//
// chaddr must be a valid 6 octet hardware address and giaddr an IPv4
// address; both are validated by the caller. Every field other than the
// elapsed seconds counter is immutable once built.
func DiscoverProbe(giaddr net.IP, chaddr net.HardwareAddr, xid []byte) DHCP4 {
	p := NewPacket(BootRequest)
	p.SetHops(1)
	p.SetXId(xid)
	p.SetGIAddr(giaddr)
	p.SetCHAddr(chaddr)
	p.AddOption(OptionDHCPMessageType, []byte{byte(Discover)})
	p.AddOption(OptionParameterRequestList, ProbeRequestList)
	p.PadToMinSize()
	return p
}
