// Package fakedaemon is a loopback stand-in for the STS daemon used in tests.
package fakedaemon

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/protocol/session"
)

// Daemon accepts one frame per connection, records it, and answers
// parameterless requests with the reply registered for the opcode.
type Daemon struct {
	ln net.Listener
	wg sync.WaitGroup

	mu         sync.Mutex
	replies    map[byte][]byte
	requests   []frame.Request
	arrived    chan struct{}
	closeAfter bool
	always     bool
	chunk      int
	chunkDelay time.Duration
}

// Start listens on an ephemeral loopback port; the daemon stops on test cleanup.
func Start(t testing.TB) *Daemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fakedaemon listen: %v", err)
	}
	d := &Daemon{
		ln:      ln,
		replies: make(map[byte][]byte),
		arrived: make(chan struct{}, 1024),
	}
	d.wg.Add(1)
	go d.serve()
	t.Cleanup(d.Close)
	return d
}

func (d *Daemon) Close() {
	_ = d.ln.Close()
	d.wg.Wait()
}

func (d *Daemon) Addr() *net.TCPAddr {
	return d.ln.Addr().(*net.TCPAddr)
}

// SessionConfig points a session at this daemon with test-sized deadlines.
func (d *Daemon) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Host = d.Addr().IP.String()
	cfg.Port = d.Addr().Port
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.ReadTimeout = 60 * time.Millisecond
	cfg.WriteTimeout = 500 * time.Millisecond
	return cfg
}

// Reply registers the raw bytes sent back for op.
func (d *Daemon) Reply(op byte, payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[op] = append([]byte(nil), payload...)
}

// ReplyValues registers a numeric reply framed as NumericReply does.
func (d *Daemon) ReplyValues(op byte, values ...float64) {
	d.Reply(op, NumericReply(op, values...))
}

// Chunked makes replies go out in size-byte writes spaced by delay.
func (d *Daemon) Chunked(size int, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chunk = size
	d.chunkDelay = delay
}

// CloseAfterReply closes each connection right after replying instead of
// holding it open until the client hangs up.
func (d *Daemon) CloseAfterReply(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeAfter = v
}

// AlwaysReply makes the daemon answer parameterized requests too.
func (d *Daemon) AlwaysReply(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.always = v
}

func (d *Daemon) Requests() []frame.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]frame.Request, len(d.requests))
	copy(out, d.requests)
	return out
}

// WaitRequests blocks until n requests have been recorded or timeout passes.
func (d *Daemon) WaitRequests(n int, timeout time.Duration) []frame.Request {
	deadline := time.After(timeout)
	for {
		if got := d.Requests(); len(got) >= n {
			return got
		}
		select {
		case <-d.arrived:
		case <-deadline:
			return d.Requests()
		}
	}
}

func (d *Daemon) serve() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handle(conn)
		}()
	}
}

func (d *Daemon) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	req, err := frame.ReadRequest(conn)
	if err != nil {
		return
	}

	d.mu.Lock()
	d.requests = append(d.requests, req)
	reply, ok := d.replies[req.Opcode]
	closeAfter := d.closeAfter
	always := d.always
	chunk, delay := d.chunk, d.chunkDelay
	d.mu.Unlock()
	select {
	case d.arrived <- struct{}{}:
	default:
	}

	if ok && (always || !req.HasParameter) {
		if chunk <= 0 {
			chunk = len(reply)
		}
		for i := 0; i < len(reply); i += chunk {
			end := min(i+chunk, len(reply))
			if _, err := conn.Write(reply[i:end]); err != nil {
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}
	if closeAfter {
		return
	}
	// Hold the connection until the client closes it.
	_, _ = io.Copy(io.Discard, conn)
}

// NumericReply frames values the way the façade expects to strip them: a
// 6-byte header (opcode, status, 4-byte body length), the whitespace
// separated values, and a trailing newline.
func NumericReply(op byte, values ...float64) []byte {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	body := strings.Join(parts, " ")
	out := make([]byte, 6, 6+len(body)+1)
	out[0] = op
	binary.BigEndian.PutUint32(out[2:6], uint32(len(body)))
	out = append(out, body...)
	return append(out, '\n')
}
