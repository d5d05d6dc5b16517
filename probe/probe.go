// Package probe implements the DISCOVER retransmission state machine and
// the event loop that drives it.
//
// A Session owns one probe packet and transmits it on a fixed interval
// until the server answers, the maximum wait expires, or an unrecoverable
// I/O error occurs. Receipt of any datagram on the connected socket is the
// success signal; the reply is never parsed.
package probe

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/irai/dhcping/dhcp4"
	"github.com/irai/dhcping/fastlog"
	"golang.org/x/sys/unix"
)

const module = "probe"

// Outcome is the result of one probe run. Handlers return Continue until a
// terminal outcome is reached; mapping terminal outcomes to an exit status
// happens in the caller, in exactly one place.
type Outcome uint8

const (
	Continue Outcome = iota
	Replied
	TimedOut
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Replied:
		return "replied"
	case TimedOut:
		return "timedout"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// Endpoint is the connected non-blocking datagram socket the session sends
// and receives on. Errno values from the raw syscalls must pass through
// unwrapped so the session can recognise transient conditions.
type Endpoint interface {
	Send(b []byte) (int, error)
	Recv(b []byte) (int, error)
	LocalIP() (net.IP, error)
	Fd() int
}

// Config carries the probe parameters. The caller validates ranges and
// guarantees Tries*Interval <= MaxWait before the session starts.
type Config struct {
	HardwareAddr net.HardwareAddr // chaddr carried by the probe packet
	Tries        uint             // number of transmissions
	Interval     time.Duration    // fixed delay between transmissions
	MaxWait      time.Duration    // absolute deadline for the whole run
	Verbose      bool
}

// Session is the live state of one probe run. It is only ever touched from
// the single threaded event loop, so it needs no locking.
type Session struct {
	conn     Endpoint
	packet   dhcp4.DHCP4
	tries    uint   // transmissions still allowed
	secs     uint16 // elapsed seconds carried by the next transmission
	interval time.Duration
	maxWait  time.Duration
	verbose  bool

	retryAt    time.Time // zero while the retry timer is unarmed
	deadlineAt time.Time
}

// NewSession builds the probe packet once and prepares a run. The
// transaction id derives from the process id and stays constant for the
// session's lifetime.
func NewSession(conn Endpoint, cfg Config) (*Session, error) {
	if len(cfg.HardwareAddr) != 6 {
		return nil, fmt.Errorf("invalid hardware address %s", cfg.HardwareAddr)
	}
	local, err := conn.LocalIP()
	if err != nil {
		return nil, fmt.Errorf("local address: %w", err)
	}
	giaddr := local.To4()
	if giaddr == nil {
		return nil, fmt.Errorf("local address %s: not ipv4", local)
	}

	xid := make([]byte, 4)
	binary.BigEndian.PutUint32(xid, uint32(os.Getpid()))

	return &Session{
		conn:     conn,
		packet:   dhcp4.DiscoverProbe(giaddr, cfg.HardwareAddr, xid),
		tries:    cfg.Tries,
		interval: cfg.Interval,
		maxWait:  cfg.MaxWait,
		verbose:  cfg.Verbose,
	}, nil
}

// transmit sends the probe packet carrying the current elapsed seconds
// value and, while tries remain, re-arms the retry timer.
//
// Transient send conditions are retried immediately: a send that would
// block must not silently skew the retry accounting.
func (s *Session) transmit(now time.Time) (Outcome, error) {
	s.packet.SetSecs(s.secs)

	for {
		_, err := s.conn.Send(s.packet)
		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		}
		if err != nil {
			return Failed, fmt.Errorf("transmit: %w", err)
		}
		break
	}

	if s.verbose {
		fastlog.NewLine(module, "discover sent").ByteArray("xid", s.packet.XId()).Uint16("secs", s.secs).Uint("tries", s.tries).Write()
	}

	if s.tries == 0 {
		// retries exhausted earlier; only the deadline or a reply ends the run
		return Continue, nil
	}
	s.tries--
	if s.tries > 0 {
		s.secs += uint16(s.interval / time.Second)
		s.retryAt = now.Add(s.interval)
	}
	return Continue, nil
}

// handleInput reads one datagram. Any successful read, whatever its size
// or content, means the server is alive.
func (s *Session) handleInput() (Outcome, error) {
	buf := make([]byte, dhcp4.BootpMinSize)
	n, err := s.conn.Recv(buf)
	if err == unix.EAGAIN || err == unix.EINTR {
		// spurious wakeup: counters and timers stay untouched
		return Continue, nil
	}
	if err != nil {
		return Failed, fmt.Errorf("input: %w", err)
	}

	if s.verbose {
		fastlog.NewLine(module, "reply received").ByteArray("xid", s.packet.XId()).Int("bytes", n).Write()
	}
	return Replied, nil
}

// handleDeadline ends the run when the maximum wait expires, whatever the
// remaining retry count.
func (s *Session) handleDeadline() (Outcome, error) {
	if s.verbose {
		fastlog.NewLine(module, "timeout waiting for reply").Duration("wait", s.maxWait).Write()
	}
	return TimedOut, nil
}
