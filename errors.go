package tpool

import "errors"

const Namespace = "tpool"

var (
	ErrResourceExhausted = errors.New(Namespace + ": cannot allocate scheduling object")
	ErrProtocolViolation = errors.New(Namespace + ": callback protocol violation")
	ErrInvalidConfig     = errors.New(Namespace + ": invalid configuration")
	ErrPoolClosed        = errors.New(Namespace + ": thread pool is closed")
	ErrClosed            = errors.New(Namespace + ": trigger object is closed")
	ErrCallbackPanicked  = errors.New(Namespace + ": callback panicked")
	ErrSemaphoreLimit    = errors.New(Namespace + ": semaphore maximum count exceeded")
)
