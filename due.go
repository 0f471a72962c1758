package tpool

import "time"

type dueKind int

const (
	dueRelative dueKind = iota
	dueAbsolute
	dueInfinite
)

// Due is a due time: relative to the moment it is applied, absolute, or
// infinite. The zero value is "now".
type Due struct {
	kind  dueKind
	after time.Duration
	at    time.Time
}

// After is a due time d from when it is applied. Non-positive d is due at once.
func After(d time.Duration) Due { return Due{kind: dueRelative, after: d} }

// At is an absolute due time. A time in the past is due at once.
func At(t time.Time) Due { return Due{kind: dueAbsolute, at: t} }

// Infinite never comes due.
func Infinite() Due { return Due{kind: dueInfinite} }

func (d Due) IsInfinite() bool { return d.kind == dueInfinite }

// resolve returns the absolute due time relative to now.
func (d Due) resolve(now time.Time) time.Time {
	switch d.kind {
	case dueAbsolute:
		return d.at
	default:
		return now.Add(d.after)
	}
}

func (d Due) String() string {
	switch d.kind {
	case dueAbsolute:
		return "at " + d.at.Format(time.RFC3339Nano)
	case dueInfinite:
		return "infinite"
	default:
		return "after " + d.after.String()
	}
}
