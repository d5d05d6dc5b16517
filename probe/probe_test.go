package probe

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/irai/dhcping/dhcp4"
	"golang.org/x/sys/unix"
)

var (
	mac1   = net.HardwareAddr{0x00, 0x02, 0x03, 0x04, 0x05, 0x01}
	local1 = net.IPv4(192, 168, 0, 129)
)

// fakeConn scripts the endpoint syscalls, the same way the engine swaps
// socket syscalls for testing.
type fakeConn struct {
	local    net.IP
	sendErrs []error // consumed one per Send attempt; nil entry succeeds
	sent     [][]byte
	recvErr  error
	reply    []byte
}

func (f *fakeConn) Send(b []byte) (int, error) {
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, append([]byte(nil), b...))
	return len(b), nil
}

func (f *fakeConn) Recv(b []byte) (int, error) {
	if f.recvErr != nil {
		return 0, f.recvErr
	}
	return copy(b, f.reply), nil
}

func (f *fakeConn) LocalIP() (net.IP, error) { return f.local, nil }
func (f *fakeConn) Fd() int                  { return -1 }

func newTestSession(t *testing.T, conn *fakeConn, tries uint, interval time.Duration) *Session {
	t.Helper()
	s, err := NewSession(conn, Config{HardwareAddr: mac1, Tries: tries, Interval: interval, MaxWait: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := NewSession(&fakeConn{local: local1}, Config{HardwareAddr: net.HardwareAddr{1, 2, 3}, Tries: 1, Interval: time.Second}); err == nil {
		t.Error("expected error for short hardware address")
	}
	if _, err := NewSession(&fakeConn{local: net.ParseIP("fe80::1")}, Config{HardwareAddr: mac1, Tries: 1, Interval: time.Second}); err == nil {
		t.Error("expected error for non ipv4 local address")
	}
}

func TestTransmitSecsMonotonic(t *testing.T) {
	conn := &fakeConn{local: local1}
	s := newTestSession(t, conn, 4, 2*time.Second)

	now := time.Now()
	for i := 0; i < 4; i++ {
		out, err := s.transmit(now)
		if out != Continue || err != nil {
			t.Fatalf("transmit %d: out=%s err=%v", i, out, err)
		}
		if i < 3 {
			if s.retryAt != now.Add(2*time.Second) {
				t.Errorf("transmit %d: retry timer not armed at now+interval", i)
			}
			now = s.retryAt
			s.retryAt = time.Time{}
		}
	}

	if len(conn.sent) != 4 {
		t.Fatalf("invalid transmission count got=%d, want=4", len(conn.sent))
	}
	for i, want := range []uint16{0, 2, 4, 6} {
		if got := dhcp4.DHCP4(conn.sent[i]).Secs(); got != want {
			t.Errorf("transmission %d: secs got=%d, want=%d", i, got, want)
		}
	}
	if !s.retryAt.IsZero() {
		t.Errorf("retry timer armed after last transmission")
	}
	if s.tries != 0 {
		t.Errorf("invalid tries got=%d, want=0", s.tries)
	}
}

func TestTransmitSingleShot(t *testing.T) {
	conn := &fakeConn{local: local1}
	s := newTestSession(t, conn, 1, 2*time.Second)

	if out, err := s.transmit(time.Now()); out != Continue || err != nil {
		t.Fatalf("transmit: out=%s err=%v", out, err)
	}
	if len(conn.sent) != 1 {
		t.Errorf("invalid transmission count got=%d, want=1", len(conn.sent))
	}
	if !s.retryAt.IsZero() {
		t.Errorf("retry timer armed for single try run")
	}
	if s.secs != 0 {
		t.Errorf("secs advanced for single try run: %d", s.secs)
	}
}

func TestTransmitExhausted(t *testing.T) {
	conn := &fakeConn{local: local1}
	s := newTestSession(t, conn, 1, 2*time.Second)
	s.tries = 0

	// still transmits, but must not reschedule or touch accounting
	if out, err := s.transmit(time.Now()); out != Continue || err != nil {
		t.Fatalf("transmit: out=%s err=%v", out, err)
	}
	if len(conn.sent) != 1 {
		t.Errorf("invalid transmission count got=%d, want=1", len(conn.sent))
	}
	if !s.retryAt.IsZero() || s.secs != 0 {
		t.Errorf("exhausted transmit changed state: retryAt=%v secs=%d", s.retryAt, s.secs)
	}
}

func TestTransmitTransientRetriedInline(t *testing.T) {
	conn := &fakeConn{local: local1, sendErrs: []error{unix.EAGAIN, unix.EINTR, nil}}
	s := newTestSession(t, conn, 3, 2*time.Second)

	if out, err := s.transmit(time.Now()); out != Continue || err != nil {
		t.Fatalf("transmit: out=%s err=%v", out, err)
	}
	if len(conn.sent) != 1 {
		t.Errorf("invalid transmission count got=%d, want=1", len(conn.sent))
	}
	if s.tries != 2 {
		t.Errorf("invalid tries got=%d, want=2", s.tries)
	}
}

func TestTransmitFatal(t *testing.T) {
	conn := &fakeConn{local: local1, sendErrs: []error{unix.EPIPE}}
	s := newTestSession(t, conn, 3, 2*time.Second)

	out, err := s.transmit(time.Now())
	if out != Failed {
		t.Fatalf("invalid outcome got=%s, want=failed", out)
	}
	if !errors.Is(err, unix.EPIPE) {
		t.Errorf("error does not wrap cause: %v", err)
	}
	if len(conn.sent) != 0 {
		t.Errorf("packet recorded despite send failure")
	}
	if !s.retryAt.IsZero() {
		t.Errorf("retry timer armed after fatal send")
	}
}

func TestInputSpuriousWakeupInert(t *testing.T) {
	for _, errno := range []error{unix.EAGAIN, unix.EINTR} {
		conn := &fakeConn{local: local1, recvErr: errno}
		s := newTestSession(t, conn, 3, 2*time.Second)
		s.secs = 4
		s.tries = 2
		s.retryAt = time.Now().Add(time.Second)
		retryAt := s.retryAt

		out, err := s.handleInput()
		if out != Continue || err != nil {
			t.Fatalf("%v: out=%s err=%v", errno, out, err)
		}
		if s.secs != 4 || s.tries != 2 || s.retryAt != retryAt {
			t.Errorf("%v: spurious wakeup changed state", errno)
		}
	}
}

func TestInputFatal(t *testing.T) {
	conn := &fakeConn{local: local1, recvErr: unix.ECONNREFUSED}
	s := newTestSession(t, conn, 3, 2*time.Second)

	out, err := s.handleInput()
	if out != Failed {
		t.Fatalf("invalid outcome got=%s, want=failed", out)
	}
	if !errors.Is(err, unix.ECONNREFUSED) {
		t.Errorf("error does not wrap cause: %v", err)
	}
}

func TestInputAnyDatagramIsReply(t *testing.T) {
	// content and size are never inspected: a single byte counts
	conn := &fakeConn{local: local1, reply: []byte{0xff}}
	s := newTestSession(t, conn, 3, 2*time.Second)

	out, err := s.handleInput()
	if out != Replied || err != nil {
		t.Fatalf("out=%s err=%v", out, err)
	}
}

func TestDeadline(t *testing.T) {
	conn := &fakeConn{local: local1}
	s := newTestSession(t, conn, 3, 2*time.Second)
	s.tries = 2 // remaining retries must not matter

	out, err := s.handleDeadline()
	if out != TimedOut || err != nil {
		t.Fatalf("out=%s err=%v", out, err)
	}
}

func TestProbePacketContent(t *testing.T) {
	conn := &fakeConn{local: local1}
	s := newTestSession(t, conn, 1, 2*time.Second)

	p := s.packet
	if len(p) != dhcp4.BootpMinSize {
		t.Fatalf("invalid packet len got=%d, want=%d", len(p), dhcp4.BootpMinSize)
	}
	if !p.GIAddr().Equal(local1) {
		t.Errorf("invalid giaddr got=%s, want=%s", p.GIAddr(), local1)
	}
	if !bytes.Equal(p.CHAddr(), mac1) {
		t.Errorf("invalid chaddr got=%s, want=%s", p.CHAddr(), mac1)
	}
}
