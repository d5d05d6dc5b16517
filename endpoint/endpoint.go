// Package endpoint provides the bound, connected, non-blocking IPv4 UDP
// socket the prober sends and receives on.
//
// The socket is a raw file descriptor rather than a net.UDPConn so the
// event loop can poll it directly and errno values reach the caller
// untranslated.
package endpoint

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// BootpsPort is the DHCP server port, used on both ends of the probe when
// an address does not name a port.
const BootpsPort = 67

// Conn is a bound and connected non-blocking datagram socket.
type Conn struct {
	fd    int
	local net.IP
}

// Dial binds a non-blocking IPv4 datagram socket to laddr and connects it
// to raddr. laddr may be empty to bind the wildcard address; either address
// defaults to the bootps port when no port is given.
func Dial(laddr, raddr string) (*Conn, error) {
	local, err := lookupInet4(laddr)
	if err != nil {
		return nil, fmt.Errorf("local address %s: %w", laddr, err)
	}
	remote, err := lookupInet4(raddr)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", raddr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.Bind(fd, local); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s port %d: %w", net.IP(local.Addr[:]), local.Port, err)
	}
	if err := unix.Connect(fd, remote); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", raddr, err)
	}

	// The socket is connected, so getsockname reports the source address
	// the kernel selected even when laddr was the wildcard.
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	sin, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		unix.Close(fd)
		return nil, fmt.Errorf("unexpected sockname family")
	}

	return &Conn{fd: fd, local: net.IP(sin.Addr[:])}, nil
}

// Send writes b to the connected peer. Errno values such as unix.EAGAIN
// and unix.EINTR pass through for the caller to classify.
func (c *Conn) Send(b []byte) (int, error) {
	return unix.Write(c.fd, b)
}

// Recv reads one datagram into b. Errno values pass through as in Send.
func (c *Conn) Recv(b []byte) (int, error) {
	return unix.Read(c.fd, b)
}

// LocalIP returns the IPv4 source address the socket is bound to.
func (c *Conn) LocalIP() (net.IP, error) {
	if ip := c.local.To4(); ip != nil {
		return ip, nil
	}
	return nil, fmt.Errorf("local address %s: not ipv4", c.local)
}

// Fd exposes the descriptor for readiness polling.
func (c *Conn) Fd() int { return c.fd }

func (c *Conn) Close() error { return unix.Close(c.fd) }

// lookupInet4 resolves addr to an IPv4 socket address, defaulting the port
// to bootps. An empty addr is the wildcard address.
func lookupInet4(addr string) (*unix.SockaddrInet4, error) {
	sa := &unix.SockaddrInet4{Port: BootpsPort}
	if addr == "" {
		return sa, nil
	}

	host := addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		host = h
		port, err := strconv.Atoi(p)
		if err != nil || port < 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %s", p)
		}
		sa.Port = port
	}

	ua, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, err
	}
	ip := ua.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("no ipv4 address for %s", host)
	}
	copy(sa.Addr[:], ip)
	return sa, nil
}
