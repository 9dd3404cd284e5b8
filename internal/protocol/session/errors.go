package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("session: not connected")
	ErrAlreadyOpen      = errors.New("session: already open")
	ErrSessionClosed    = errors.New("session: closed")
	ErrResponseTooLarge = errors.New("session: response too large")

	// Class sentinels matched by the typed errors below.
	ErrConnect = errors.New("session: connect failed")
	ErrSend    = errors.New("session: send failed")
	ErrReceive = errors.New("session: receive failed")
)

// ConnectError reports a refused or timed-out dial.
type ConnectError struct {
	Address string
	Cause   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect %s: %v", e.Address, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// SendError reports a transport failure while writing a frame.
type SendError struct {
	Written int
	Cause   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("session: send failed after %d bytes: %v", e.Written, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

func (e *SendError) Is(target error) bool { return target == ErrSend }

// ReceiveError reports a read failure other than the terminating timeout.
type ReceiveError struct {
	Received int
	Cause    error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("session: receive failed after %d bytes: %v", e.Received, e.Cause)
}

func (e *ReceiveError) Unwrap() error { return e.Cause }

func (e *ReceiveError) Is(target error) bool { return target == ErrReceive }
