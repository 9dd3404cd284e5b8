package protocol

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/stsctl/internal/protocol/command"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/protocol/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExchangeObserver is told about every finished exchange. The signature
// matches observability.RecordExchange.
type ExchangeObserver func(command, outcome string, responseBytes int, duration time.Duration)

// Reply is the result of one exchange.
type Reply struct {
	Command command.Command
	// Frame is the exact request sent on the wire.
	Frame []byte
	// Payload is everything read before the socket went quiet. It may be
	// partial when Execute also returns a receive error.
	Payload []byte
	// Awaited is false for parameterized commands, which never read.
	Awaited     bool
	Chunks      int
	Termination session.Termination
}

// Silent reports an awaited read that produced no bytes.
func (r Reply) Silent() bool {
	return r.Awaited && len(r.Payload) == 0
}

// Bytes returns the payload, or ErrNoResponse when the daemon stayed silent.
func (r Reply) Bytes() ([]byte, error) {
	if r.Silent() {
		return nil, ErrNoResponse
	}
	return r.Payload, nil
}

// Client resolves, frames, and sends commands, one fresh session per call.
// It holds no per-exchange state and is safe for concurrent use.
type Client struct {
	cfg      session.Config
	registry *command.Registry
	logger   zerolog.Logger
	observe  ExchangeObserver
}

type Option func(*Client)

func WithRegistry(r *command.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithObserver(o ExchangeObserver) Option {
	return func(c *Client) {
		c.observe = o
	}
}

func NewClient(cfg session.Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg.WithDefaults(),
		registry: command.Default(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Config() session.Config { return c.cfg }

func (c *Client) Registry() *command.Registry { return c.registry }

// Execute runs one exchange: lookup, encode, dial, send, then read only when
// no parameter was given. The session is closed before Execute returns.
func (c *Client) Execute(ctx context.Context, name string, p frame.Parameter) (reply Reply, err error) {
	start := time.Now()
	label := strings.TrimSpace(name)
	defer func() {
		c.finish(label, p, reply, err, time.Since(start))
	}()

	cmd, err := c.registry.Lookup(name)
	if err != nil {
		label = "unknown"
		return Reply{}, err
	}
	buf, err := frame.Encode(cmd.Opcode, p)
	if err != nil {
		return Reply{Command: cmd}, err
	}
	reply = Reply{Command: cmd, Frame: buf}

	s, err := session.Dial(ctx, c.cfg)
	if err != nil {
		return reply, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Str("command", cmd.Name).Msg("daemon session close")
		}
	}()

	if err = s.Send(buf); err != nil {
		return reply, err
	}
	if p.Present() {
		return reply, nil
	}

	resp, err := s.Receive()
	reply.Awaited = true
	reply.Payload = resp.Payload
	reply.Chunks = resp.Chunks
	reply.Termination = resp.Termination
	return reply, err
}

// Query executes a parameterless command and returns its reply.
func (c *Client) Query(ctx context.Context, name string) (Reply, error) {
	return c.Execute(ctx, name, frame.NoParam)
}

// Set sends a parameterized command without waiting for a reply.
func (c *Client) Set(ctx context.Context, name string, value any) error {
	_, err := c.Execute(ctx, name, frame.Param(value))
	return err
}

// Version returns the daemon version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	reply, err := c.Query(ctx, command.GetVersion)
	if err != nil {
		return "", err
	}
	b, err := reply.Bytes()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Ping succeeds when the daemon answers get_version with any bytes.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

func (c *Client) finish(name string, p frame.Parameter, reply Reply, err error, d time.Duration) {
	outcome := Classify(err)
	switch {
	case err != nil:
	case !reply.Awaited:
		outcome = OutcomeSent
	case reply.Silent():
		outcome = OutcomeSilent
	}

	if c.observe != nil {
		c.observe(name, outcome, len(reply.Payload), d)
	}

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event = event.
		Str("command", name).
		Str("outcome", outcome).
		Hex("frame", reply.Frame).
		Int("bytes", len(reply.Payload)).
		Dur("duration", d)
	if p.Present() {
		event = event.Int("param_len", p.Len())
	}
	if reply.Awaited {
		event = event.Str("termination", reply.Termination.String())
	}
	event.Msg("daemon exchange")
}
