package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// State is the connection lifecycle of a Session.
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one TCP connection for one request/response exchange.
// It is not safe for concurrent use and is never reused after Close.
type Session struct {
	cfg    Config
	conn   net.Conn
	state  State
	broken bool
}

func New(cfg Config) *Session {
	return &Session{cfg: cfg.WithDefaults()}
}

// Dial creates a session and opens it.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	s := New(cfg)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Config() Config { return s.cfg }

func (s *Session) State() State { return s.state }

// LocalAddr returns the local socket address, or nil when not open.
func (s *Session) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Open dials the daemon. ConnectTimeout bounds the attempt.
func (s *Session) Open(ctx context.Context) error {
	switch s.state {
	case StateOpen:
		return ErrAlreadyOpen
	case StateClosed:
		return ErrSessionClosed
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	addr := s.cfg.Address()
	dialer := net.Dialer{Timeout: s.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &ConnectError{Address: addr, Cause: err}
	}
	s.conn = conn
	s.state = StateOpen
	return nil
}

// Send writes the whole frame. A failed send leaves the session unusable.
func (s *Session) Send(frame []byte) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			s.broken = true
			return &SendError{Cause: err}
		}
	}
	n, err := s.conn.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.broken = true
		return &SendError{Written: n, Cause: err}
	}
	return nil
}

// Receive reads ReadChunk-sized windows until a read times out, the peer
// closes, or MaxResponseBytes is reached. The timeout is the end-of-response
// signal, not an error. Bytes read before any failure are always returned.
func (s *Session) Receive() (Response, error) {
	if err := s.usable(); err != nil {
		return Response{Termination: TerminationError}, err
	}

	var (
		out  bytes.Buffer
		resp Response
		buf  = make([]byte, s.cfg.ReadChunk)
	)
	finish := func(t Termination) Response {
		resp.Payload = out.Bytes()
		resp.Termination = t
		return resp
	}

	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.broken = true
			return finish(TerminationError), &ReceiveError{Received: out.Len(), Cause: err}
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			room := s.cfg.MaxResponseBytes - out.Len()
			if n > room {
				out.Write(buf[:room])
				resp.Chunks++
				return finish(TerminationLimit), ErrResponseTooLarge
			}
			out.Write(buf[:n])
			resp.Chunks++
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			if out.Len() == 0 {
				return finish(TerminationSilent), nil
			}
			return finish(TerminationIdle), nil
		case errors.Is(err, io.EOF):
			return finish(TerminationClosed), nil
		default:
			s.broken = true
			return finish(TerminationError), &ReceiveError{Received: out.Len(), Cause: err}
		}
	}
}

// Close releases the socket. Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateUnopened:
		s.state = StateClosed
		return nil
	}
	s.state = StateClosed
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) usable() error {
	if s.state != StateOpen || s.conn == nil {
		return ErrNotConnected
	}
	if s.broken {
		return ErrNotConnected
	}
	return nil
}
