// Package dhcp4 implements the subset of the DHCPv4 wire format needed to
// build probe packets.
//
// Packet layout per RFC2131. Accessor idiom inspired by code written by
// http://richard.warburton.it/
package dhcp4

import (
	"encoding/binary"
	"fmt"
	"net"
)

type OptionCode byte
type OpCode byte
type MessageType byte // Option 53

// A DHCP4 packet
type DHCP4 []byte

// BootpMinSize is the minimum BOOTP message length. Probe packets are
// padded to exactly this size.
const BootpMinSize = 300

// magicCookie marks the start of the options area.
var magicCookie = []byte{99, 130, 83, 99}

func (p DHCP4) IsValid() bool {
	if len(p) < 240 || p.HLen() > 16 {
		return false
	}
	return true
}

func (p DHCP4) String() string {
	return fmt.Sprintf("opcode=%v chaddr=%s giaddr=%s secs=%d len=%d", p.OpCode(), p.CHAddr(), p.GIAddr(), p.Secs(), len(p))
}

func (p DHCP4) OpCode() OpCode { return OpCode(p[0]) }
func (p DHCP4) HType() byte    { return p[1] }
func (p DHCP4) HLen() byte     { return p[2] }
func (p DHCP4) Hops() byte     { return p[3] }
func (p DHCP4) XId() []byte    { return p[4:8] }
func (p DHCP4) Secs() uint16   { return binary.BigEndian.Uint16(p[8:10]) }
func (p DHCP4) Flags() []byte  { return p[10:12] }
func (p DHCP4) CIAddr() net.IP { return net.IP(p[12:16]) }
func (p DHCP4) YIAddr() net.IP { return net.IP(p[16:20]) }
func (p DHCP4) SIAddr() net.IP { return net.IP(p[20:24]) }
func (p DHCP4) GIAddr() net.IP { return net.IP(p[24:28]) }
func (p DHCP4) CHAddr() net.HardwareAddr {
	hLen := p.HLen()
	if hLen > 16 { // Prevent chaddr exceeding p boundary
		hLen = 16
	}
	return net.HardwareAddr(p[28 : 28+hLen])
}

func (p DHCP4) Cookie() []byte { return p[236:240] }
func (p DHCP4) Options() []byte {
	if len(p) > 240 {
		return p[240:]
	}
	return nil
}

func (p DHCP4) SetOpCode(c OpCode) { p[0] = byte(c) }
func (p DHCP4) SetCHAddr(a net.HardwareAddr) {
	copy(p[28:44], a)
	p[2] = byte(len(a))
}
func (p DHCP4) SetHType(hType byte) { p[1] = hType }
func (p DHCP4) SetHops(hops byte)   { p[3] = hops }
func (p DHCP4) SetXId(xId []byte)   { copy(p.XId(), xId) }

// SetSecs writes the elapsed seconds field in network byte order. This is
// the only field that mutates after construction.
func (p DHCP4) SetSecs(secs uint16) { binary.BigEndian.PutUint16(p[8:10], secs) }

func (p DHCP4) SetCIAddr(ip net.IP)     { copy(p.CIAddr(), ip.To4()) }
func (p DHCP4) SetGIAddr(ip net.IP)     { copy(p.GIAddr(), ip.To4()) }
func (p DHCP4) SetCookie(cookie []byte) { copy(p.Cookie(), cookie) }

// Map of DHCP options
type Options map[OptionCode][]byte

// Parses the packet's options into an Options map
func (p DHCP4) ParseOptions() Options {
	opts := p.Options()
	options := make(Options, 4)
	for len(opts) >= 2 && OptionCode(opts[0]) != End {
		if OptionCode(opts[0]) == Pad {
			opts = opts[1:]
			continue
		}
		size := int(opts[1])
		if len(opts) < 2+size {
			break
		}
		options[OptionCode(opts[0])] = opts[2 : 2+size]
		opts = opts[2+size:]
	}
	return options
}

func NewPacket(opCode OpCode) DHCP4 {
	p := make(DHCP4, 241, BootpMinSize)
	p.SetOpCode(opCode)
	p.SetHType(1) // Ethernet
	p.SetCookie(magicCookie)
	p[240] = byte(End)
	return p
}

// Appends a DHCP option to the end of a packet
func (p *DHCP4) AddOption(o OptionCode, value []byte) {
	*p = append((*p)[:len(*p)-1], []byte{byte(o), byte(len(value))}...) // Strip off End, Add OptionCode and Length
	*p = append(*p, value...)                                           // Add Option Value
	*p = append(*p, byte(End))                                          // Add on new End
}

// PadToMinSize pads a packet to the BOOTP minimum length so really old
// servers accept it.
var padder [BootpMinSize]byte

func (p *DHCP4) PadToMinSize() {
	if n := len(*p); n < BootpMinSize {
		*p = append(*p, padder[:BootpMinSize-n]...)
	}
}

//go:generate stringer -type=OpCode

// OpCodes
const (
	BootRequest OpCode = 1 // From Client
	BootReply   OpCode = 2 // From Server
)

//go:generate stringer -type=MessageType

// DHCP Message Type 53
const (
	Discover MessageType = 1
	Offer    MessageType = 2
	Request  MessageType = 3
	Decline  MessageType = 4
	ACK      MessageType = 5
	NAK      MessageType = 6
	Release  MessageType = 7
	Inform   MessageType = 8
)

// DHCP Options
const (
	End                        OptionCode = 255
	Pad                        OptionCode = 0
	OptionSubnetMask           OptionCode = 1
	OptionTimeOffset           OptionCode = 2
	OptionRouter               OptionCode = 3
	OptionDomainNameServer     OptionCode = 6
	OptionHostName             OptionCode = 12
	OptionDomainName           OptionCode = 15
	OptionBroadcastAddress     OptionCode = 28
	OptionRequestedIPAddress   OptionCode = 50
	OptionIPAddressLeaseTime   OptionCode = 51
	OptionDHCPMessageType      OptionCode = 53
	OptionServerIdentifier     OptionCode = 54
	OptionParameterRequestList OptionCode = 55
	OptionMessage              OptionCode = 56
	OptionTFTPServerName       OptionCode = 66
	OptionBootFileName         OptionCode = 67
	OptionDomainSearch         OptionCode = 119
	OptionClasslessRouteFormat OptionCode = 121
)
