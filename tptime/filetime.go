// Package tptime converts between time.Time and native OS time formats.
package tptime

import "time"

// ticksPerSecond is the number of 100ns intervals in one second.
const ticksPerSecond = int64(time.Second / 100)

// epochDelta is the number of 100ns intervals between 1601-01-01 and
// 1970-01-01 UTC.
const epochDelta = int64(116444736000000000)

// Filetime is a 64-bit count of 100ns intervals since 1601-01-01 UTC, split
// into two 32-bit halves. A negative value as a whole denotes a relative time.
type Filetime struct {
	LowDateTime  uint32
	HighDateTime uint32
}

// FromTicks splits a 100ns tick count.
func FromTicks(ticks int64) Filetime {
	u := uint64(ticks)
	return Filetime{LowDateTime: uint32(u), HighDateTime: uint32(u >> 32)}
}

// Ticks joins the halves into a 100ns tick count.
func (ft Filetime) Ticks() int64 {
	return int64(uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime))
}

// IsRelative reports whether ft encodes a duration rather than a time point.
func (ft Filetime) IsRelative() bool { return ft.Ticks() < 0 }

// ToFiletime converts t, truncating to 100ns.
func ToFiletime(t time.Time) Filetime {
	ticks := t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100 + epochDelta
	return FromTicks(ticks)
}

// FromFiletime converts an absolute ft to a UTC time.
func FromFiletime(ft Filetime) time.Time {
	ticks := ft.Ticks() - epochDelta
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// RelativeFiletime encodes d as a relative due time, truncating to 100ns.
func RelativeFiletime(d time.Duration) Filetime {
	return FromTicks(-int64(d / 100))
}

// Duration decodes a relative ft.
func (ft Filetime) Duration() time.Duration {
	ticks := ft.Ticks()
	if ticks > 0 {
		return 0
	}
	return time.Duration(-ticks) * 100
}
