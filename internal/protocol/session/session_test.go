package session

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/stsctl/internal/testutil/testlog"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestPollStopsOnSuccessAndAttemptLimit(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}

	calls := 0
	err := Poll(context.Background(), cfg, 0, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("poll success: err=%v calls=%d", err, calls)
	}

	boom := errors.New("boom")
	calls = 0
	err = Poll(context.Background(), cfg, 2, func(int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 2 {
		t.Fatalf("poll limit: err=%v calls=%d", err, calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Poll(ctx, BackoffConfig{InitialDelay: time.Hour}, 0, func(int) error { return boom })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("poll cancelled: err=%v", err)
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.Address() != "127.0.0.1:1865" {
		t.Fatalf("default address: %s", cfg.Address())
	}
	if cfg.ReadTimeout != time.Second || cfg.ReadChunk != 64 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}
	bad := cfg
	bad.Port = 70000
	if err := bad.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestReceiveConcatenatesChunksUntilQuiet(t *testing.T) {
	testlog.Start(t)
	payload := []byte(strings.Repeat("0123456789", 25))
	cfg := listen(t, func(conn net.Conn) {
		for i := 0; i < len(payload); i += 33 {
			end := min(i+33, len(payload))
			_, _ = conn.Write(payload[i:end])
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(500 * time.Millisecond)
	})
	cfg.ReadChunk = 7

	s := dial(t, cfg)
	defer s.Close()

	resp, err := s.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(resp.Payload, payload) {
		t.Fatalf("payload mismatch: got %d bytes want %d", len(resp.Payload), len(payload))
	}
	if resp.Termination != TerminationIdle {
		t.Fatalf("termination: got %s want idle", resp.Termination)
	}
	if resp.Chunks < len(payload)/cfg.ReadChunk {
		t.Fatalf("chunks=%d less than minimum reads", resp.Chunks)
	}
}

func TestReceiveSilentPeer(t *testing.T) {
	testlog.Start(t)
	cfg := listen(t, func(conn net.Conn) {
		time.Sleep(300 * time.Millisecond)
	})
	s := dial(t, cfg)
	defer s.Close()

	resp, err := s.Receive()
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if !resp.Silent() || resp.Termination != TerminationSilent {
		t.Fatalf("expected silent response, got %+v", resp)
	}
}

func TestReceivePeerClosed(t *testing.T) {
	testlog.Start(t)
	cfg := listen(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("abc"))
	})
	s := dial(t, cfg)
	defer s.Close()

	resp, err := s.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(resp.Payload) != "abc" || resp.Termination != TerminationClosed {
		t.Fatalf("unexpected response: %q %s", resp.Payload, resp.Termination)
	}
}

func TestReceiveLimitKeepsPartialBytes(t *testing.T) {
	testlog.Start(t)
	cfg := listen(t, func(conn net.Conn) {
		_, _ = conn.Write(bytes.Repeat([]byte{'z'}, 32))
		time.Sleep(300 * time.Millisecond)
	})
	cfg.MaxResponseBytes = 10
	s := dial(t, cfg)
	defer s.Close()

	resp, err := s.Receive()
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if len(resp.Payload) != 10 || resp.Termination != TerminationLimit {
		t.Fatalf("unexpected partial response: %d bytes %s", len(resp.Payload), resp.Termination)
	}
}

func TestSendDeliversWholeFrame(t *testing.T) {
	testlog.Start(t)
	got := make(chan []byte, 1)
	cfg := listen(t, func(conn net.Conn) {
		buf := make([]byte, 9)
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _ := readFull(conn, buf)
		got <- buf[:n]
	})
	s := dial(t, cfg)
	defer s.Close()

	frame := []byte{0x01, 0x00, 0x06, '1', '0', '0', '0', '0', '0'}
	if err := s.Send(frame); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case b := <-got:
		if !bytes.Equal(b, frame) {
			t.Fatalf("peer got % X want % X", b, frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("peer never received frame")
	}
}

func TestLifecycleStateMachine(t *testing.T) {
	testlog.Start(t)
	cfg := listen(t, func(conn net.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	s := New(cfg)
	if s.State() != StateUnopened {
		t.Fatalf("initial state %s", s.State())
	}
	if err := s.Send([]byte{0x0D, 0, 0}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send before open: %v", err)
	}
	if _, err := s.Receive(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("receive before open: %v", err)
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Open(context.Background()); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("state after close %s", s.State())
	}
	if err := s.Send([]byte{0x0D, 0, 0}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send after close: %v", err)
	}
	if _, err := s.Receive(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("receive after close: %v", err)
	}
	if err := s.Open(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("reopen after close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("double close: %v", err)
	}
}

func TestOpenRefused(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	cfg := DefaultConfig()
	cfg.Port = port
	cfg.ConnectTimeout = 200 * time.Millisecond
	_, err = Dial(context.Background(), cfg)
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	var connErr *ConnectError
	if !errors.As(err, &connErr) || connErr.Address != cfg.Address() {
		t.Fatalf("expected *ConnectError for %s, got %v", cfg.Address(), err)
	}
}

func resetConn(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = conn.Close()
}

func TestSendAfterPeerResetBreaksSession(t *testing.T) {
	testlog.Start(t)
	reset := make(chan struct{})
	cfg := listen(t, func(conn net.Conn) {
		resetConn(conn)
		close(reset)
	})
	s := dial(t, cfg)
	<-reset

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = s.Send([]byte{0x0D, 0x00, 0x00})
		if err == nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !errors.Is(err, ErrSend) {
		t.Fatalf("expected ErrSend, got %v", err)
	}
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendError, got %T", err)
	}

	if err := s.Send([]byte{0x0D, 0x00, 0x00}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send on broken session: %v", err)
	}
	if _, err := s.Receive(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("receive on broken session: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close broken session: %v", err)
	}
}

func TestReceiveResetKeepsPartial(t *testing.T) {
	testlog.Start(t)
	cfg := listen(t, func(conn net.Conn) {
		req := make([]byte, 3)
		if _, err := readFull(conn, req); err != nil {
			return
		}
		_, _ = conn.Write([]byte("partial"))
		time.Sleep(20 * time.Millisecond)
		resetConn(conn)
	})
	s := dial(t, cfg)
	defer s.Close()

	if err := s.Send([]byte{0x0D, 0x00, 0x00}); err != nil {
		t.Fatalf("send: %v", err)
	}
	resp, err := s.Receive()
	if !errors.Is(err, ErrReceive) {
		t.Fatalf("expected ErrReceive, got %v", err)
	}
	var recvErr *ReceiveError
	if !errors.As(err, &recvErr) || recvErr.Received != len("partial") {
		t.Fatalf("receive error: %#v", err)
	}
	if string(resp.Payload) != "partial" || resp.Termination != TerminationError {
		t.Fatalf("response: payload=%q termination=%v", resp.Payload, resp.Termination)
	}
	if _, err := s.Receive(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("receive after reset: %v", err)
	}
}

func listen(t *testing.T, handle func(conn net.Conn)) Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	cfg := DefaultConfig()
	cfg.Host = addr.IP.String()
	cfg.Port = addr.Port
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.ReadTimeout = 80 * time.Millisecond
	return cfg
}

func dial(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return s
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
