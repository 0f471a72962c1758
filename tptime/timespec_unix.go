//go:build unix

package tptime

import (
	"time"

	"golang.org/x/sys/unix"
)

// ToTimespec converts t to a unix timespec.
func ToTimespec(t time.Time) (unix.Timespec, error) {
	return unix.TimeToTimespec(t)
}

// FromTimespec converts ts to a local time.
func FromTimespec(ts unix.Timespec) time.Time {
	sec, nsec := ts.Unix()
	return time.Unix(sec, nsec)
}

// DurationToTimespec converts a relative timeout.
func DurationToTimespec(d time.Duration) unix.Timespec {
	return unix.NsecToTimespec(d.Nanoseconds())
}
