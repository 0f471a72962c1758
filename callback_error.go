package tpool

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind names the class of trigger object a callback belongs to.
type Kind string

const (
	KindWork   Kind = "work"
	KindSubmit Kind = "submit"
	KindTimer  Kind = "timer"
	KindWait   Kind = "wait"
	KindIo     Kind = "io"
)

// CallbackMetaError exposes which trigger object a callback failure belongs to.
type CallbackMetaError interface {
	error
	Unwrap() error
	TriggerKind() Kind
	TriggerID() uuid.UUID
}

type callbackError struct {
	err  error
	kind Kind
	id   uuid.UUID
}

func newCallbackError(err error, kind Kind, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	return &callbackError{err: err, kind: kind, id: id}
}

func (e *callbackError) Error() string        { return e.err.Error() }
func (e *callbackError) Unwrap() error        { return e.err }
func (e *callbackError) TriggerKind() Kind    { return e.kind }
func (e *callbackError) TriggerID() uuid.UUID { return e.id }

func (e *callbackError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "%s(id=%s): %+v", e.kind, e.id, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractTrigger returns the trigger kind and identity recorded in err, if any.
func ExtractTrigger(err error) (Kind, uuid.UUID, bool) {
	var cme CallbackMetaError
	if errors.As(err, &cme) {
		return cme.TriggerKind(), cme.TriggerID(), true
	}
	return "", uuid.Nil, false
}
