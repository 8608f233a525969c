package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures by who has to act on them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUserInput is reported to the invoking user only.
	KindUserInput
	// KindStateConflict means the operation does not apply to the current state.
	KindStateConflict
	// KindCollaborator means the gateway or the audio node failed.
	KindCollaborator
	// KindTimeout means voice credentials never arrived.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindStateConflict:
		return "state_conflict"
	case KindCollaborator:
		return "collaborator"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

var (
	ErrNoVoiceState      = errors.New("join a voice channel first")
	ErrNoResults         = errors.New("no results for this query found")
	ErrNothingQueued     = errors.New("nothing is in the queue")
	ErrStaleSurface      = errors.New("this player is no longer active")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrNotConnected      = errors.New("not connected to a voice channel")
	ErrNotPlaying        = errors.New("nothing is playing")
	ErrSessionClosed     = errors.New("session closed")
	ErrConnectionTimeout = errors.New("timed out waiting for voice connection")
)

// Error carries the operation and the failure kind around a cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func userInput(op string, err error) error {
	return &Error{Op: op, Kind: KindUserInput, Err: err}
}

func conflict(op string, err error) error {
	return &Error{Op: op, Kind: KindStateConflict, Err: err}
}

func collaborator(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: KindTimeout, Err: err}
	}
	return &Error{Op: op, Kind: KindCollaborator, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage renders err as the short acknowledgement shown to the invoking user.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindUserInput, KindStateConflict:
		var e *Error
		errors.As(err, &e)
		msg := e.Err.Error()
		if msg == "" {
			break
		}
		return strings.ToUpper(msg[:1]) + msg[1:] + "!"
	case KindTimeout:
		return "Could not connect to the voice channel in time."
	}
	return "An error occurred while handling this request."
}
