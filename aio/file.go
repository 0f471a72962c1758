// Package aio issues asynchronous reads and writes against a file and posts
// their completions to a tpool.CompletionPort.
package aio

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ygrebnov/errorc"
	"golang.org/x/sync/semaphore"

	"github.com/ygrebnov/tpool"
)

var (
	ErrClosed       = errors.New("aio: file is closed")
	ErrNotBound     = errors.New("aio: no completion port bound")
	ErrAlreadyBound = errors.New("aio: completion port already bound")
)

// DefaultMaxInFlight bounds concurrently executing operations per file.
const DefaultMaxInFlight = 64

// File is an *os.File whose operations complete asynchronously.
type File struct {
	f        *os.File
	inFlight *semaphore.Weighted

	mu     sync.Mutex
	port   tpool.CompletionPort
	closed bool
	issued sync.WaitGroup
}

// Option configures a File.
type Option func(*File)

// WithMaxInFlight bounds how many issued operations touch the file at once.
// Operations beyond the bound are still accepted and wait their turn.
func WithMaxInFlight(n int64) Option {
	return func(f *File) {
		if n > 0 {
			f.inFlight = semaphore.NewWeighted(n)
		}
	}
}

// New wraps f. The File takes ownership of f.
func New(f *os.File, opts ...Option) *File {
	file := &File{f: f, inFlight: semaphore.NewWeighted(DefaultMaxInFlight)}
	for _, opt := range opts {
		if opt != nil {
			opt(file)
		}
	}
	return file
}

// OpenFile opens name like os.OpenFile and wraps it.
func OpenFile(name string, flag int, perm os.FileMode, opts ...Option) (*File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return New(f, opts...), nil
}

// Name returns the name of the underlying file.
func (f *File) Name() string { return f.f.Name() }

// BindCompletionPort routes completions of every later operation to port.
// A file can be bound once.
func (f *File) BindCompletionPort(port tpool.CompletionPort) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return errorc.With(ErrClosed, errorc.String("file", f.f.Name()))
	case f.port != nil:
		return errorc.With(ErrAlreadyBound, errorc.String("file", f.f.Name()))
	case port == nil:
		return errorc.With(ErrNotBound, errorc.String("file", f.f.Name()))
	}
	f.port = port
	return nil
}

// WriteAt issues a write of buf at off. The completion carries token.
// buf must not be modified until the completion is delivered.
func (f *File) WriteAt(buf []byte, off int64, token any) (tpool.IssueResult, error) {
	return f.issue(buf, token, func() (int, error) { return f.f.WriteAt(buf, off) })
}

// ReadAt issues a read into buf at off. A short read completes with io.EOF.
func (f *File) ReadAt(buf []byte, off int64, token any) (tpool.IssueResult, error) {
	return f.issue(buf, token, func() (int, error) { return f.f.ReadAt(buf, off) })
}

func (f *File) issue(buf []byte, token any, op func() (int, error)) (tpool.IssueResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return tpool.IssueFailed, errorc.With(ErrClosed, errorc.String("file", f.f.Name()))
	}
	port := f.port
	if port == nil {
		f.mu.Unlock()
		return tpool.IssueFailed, errorc.With(ErrNotBound, errorc.String("file", f.f.Name()))
	}
	f.issued.Add(1)
	f.mu.Unlock()

	if len(buf) == 0 {
		port.Complete(token, nil, 0)
		f.issued.Done()
		return tpool.IssueCompletedSync, nil
	}

	go func() {
		defer f.issued.Done()
		// Acquire on a background context fails only on cancellation
		_ = f.inFlight.Acquire(context.Background(), 1)
		n, err := op()
		f.inFlight.Release(1)
		port.Complete(token, err, n)
	}()
	return tpool.IssuePending, nil
}

// Close rejects further operations, waits until every issued operation has
// posted its completion and closes the file.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.issued.Wait()
	return f.f.Close()
}
