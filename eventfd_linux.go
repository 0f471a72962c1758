//go:build linux

package tpool

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// eventFDPollSlice bounds how long a single poll blocks so ctx is rechecked.
const eventFDPollSlice = 10 * time.Millisecond

// EventFD is a Waitable backed by a Linux eventfd. Signal adds one to the
// counter; a successful Wait reads and resets it.
type EventFD struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// NewEventFD creates a non-blocking eventfd.
func NewEventFD() (*EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, errors.Join(ErrResourceExhausted, err)
	}
	return &EventFD{fd: fd}, nil
}

// Fd returns the underlying descriptor.
func (e *EventFD) Fd() int { return e.fd }

// Signal increments the eventfd counter.
func (e *EventFD) Signal() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	_, err := unix.Write(e.fd, buf[:])
	return err
}

func (e *EventFD) Wait(ctx context.Context) error {
	fds := []unix.PollFd{{Fd: int32(e.fd), Events: unix.POLLIN}}
	for {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		slice := eventFDPollSlice
		if dl, ok := ctx.Deadline(); ok {
			if until := time.Until(dl); until < slice {
				slice = max(until, 0)
			}
		}
		n, err := unix.Poll(fds, int(slice/time.Millisecond))
		if err != nil && err != unix.EINTR {
			return err
		}
		if n > 0 {
			if ok, err := e.consume(); err != nil || ok {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// consume reads the counter; false means another waiter won the race.
func (e *EventFD) consume() (bool, error) {
	var buf [8]byte
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}
	_, err := unix.Read(e.fd, buf[:])
	if err == unix.EAGAIN {
		return false, nil
	}
	return err == nil, err
}

// Close releases the descriptor.
func (e *EventFD) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
