package aio

import "time"

const (
	timeout = 2 * time.Second
	tick    = time.Millisecond
)
