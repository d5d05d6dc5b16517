package probe

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Run drives the session to a terminal outcome: one immediate transmission,
// then a poll loop multiplexing socket readability against the retry and
// max-wait deadlines.
//
// Dispatch is strictly sequential. The readability watch is persistent;
// both deadlines are one-shot and only transmit re-arms the retry one. The
// first terminal outcome wins and every pending deadline dies with it.
func Run(s *Session) (Outcome, error) {
	now := time.Now()
	s.deadlineAt = now.Add(s.maxWait)

	if out, err := s.transmit(now); out != Continue {
		return out, err
	}

	fds := []unix.PollFd{{Fd: int32(s.conn.Fd()), Events: unix.POLLIN}}
	for {
		fds[0].Revents = 0
		n, err := unix.Poll(fds, s.pollTimeout(time.Now()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Failed, fmt.Errorf("poll: %w", err)
		}

		// input first, so a reply beats a deadline reported in the same wakeup.
		// POLLERR surfaces async socket errors (e.g. port unreachable) through
		// the read below.
		if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
			if out, err := s.handleInput(); out != Continue {
				return out, err
			}
		}

		now = time.Now()
		if !now.Before(s.deadlineAt) {
			return s.handleDeadline()
		}
		if !s.retryAt.IsZero() && !now.Before(s.retryAt) {
			s.retryAt = time.Time{}
			if out, err := s.transmit(now); out != Continue {
				return out, err
			}
		}
	}
}

// pollTimeout returns the wait until the earliest armed deadline, in
// milliseconds, rounded up so the loop does not wake just short of it.
func (s *Session) pollTimeout(now time.Time) int {
	next := s.deadlineAt
	if !s.retryAt.IsZero() && s.retryAt.Before(next) {
		next = s.retryAt
	}
	d := next.Sub(now)
	if d < 0 {
		d = 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
