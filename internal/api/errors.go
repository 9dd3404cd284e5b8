package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danmuck/stsctl/internal/protocol"
	"github.com/danmuck/stsctl/internal/protocol/command"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/protocol/session"
	"github.com/danmuck/stsctl/internal/spectrum"
	"github.com/danmuck/stsctl/internal/store"
	"github.com/gin-gonic/gin"
)

var (
	ErrBadRequest    = errors.New("api: bad request")
	ErrStoreDisabled = errors.New("api: spectra store not configured")
)

// statusFor maps a client, parse, or store error onto an HTTP status.
func statusFor(err error) int {
	var valueErr *spectrum.ValueError
	switch {
	case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, frame.ErrParameterTooLarge), errors.Is(err, ErrBadRequest),
		errors.Is(err, store.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, session.ErrConnect):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrNoResponse), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrSend), errors.Is(err, session.ErrReceive),
		errors.Is(err, session.ErrResponseTooLarge),
		errors.Is(err, spectrum.ErrShortResponse), errors.Is(err, spectrum.ErrLengthMismatch),
		errors.Is(err, spectrum.ErrEmpty), errors.As(err, &valueErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
