package protocol

import (
	"context"
	"errors"

	"github.com/danmuck/stsctl/internal/protocol/command"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/protocol/session"
)

// ErrNoResponse means a read was awaited and the daemon sent nothing.
var ErrNoResponse = errors.New("protocol: no response from daemon")

// Outcome labels for logs and metrics.
const (
	OutcomeOK             = "ok"
	OutcomeSent           = "sent"
	OutcomeSilent         = "silent"
	OutcomeUnknownCommand = "unknown_command"
	OutcomeTooLarge       = "parameter_too_large"
	OutcomeConnect        = "connect"
	OutcomeSend           = "send"
	OutcomeReceive        = "receive"
	OutcomeLimit          = "response_limit"
	OutcomeNotConnected   = "not_connected"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// Classify maps an Execute error to its outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, command.ErrUnknownCommand):
		return OutcomeUnknownCommand
	case errors.Is(err, frame.ErrParameterTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, session.ErrConnect):
		return OutcomeConnect
	case errors.Is(err, session.ErrSend):
		return OutcomeSend
	case errors.Is(err, session.ErrReceive):
		return OutcomeReceive
	case errors.Is(err, session.ErrResponseTooLarge):
		return OutcomeLimit
	case errors.Is(err, session.ErrNotConnected):
		return OutcomeNotConnected
	case errors.Is(err, ErrNoResponse):
		return OutcomeSilent
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
