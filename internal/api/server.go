// Package api is the HTTP façade over the STS daemon client.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/stsctl/internal/auth"
	"github.com/danmuck/stsctl/internal/observability"
	"github.com/danmuck/stsctl/internal/protocol"
	"github.com/danmuck/stsctl/internal/protocol/command"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/spectrum"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Daemon is the part of protocol.Client the façade drives.
type Daemon interface {
	Execute(ctx context.Context, name string, p frame.Parameter) (protocol.Reply, error)
	Query(ctx context.Context, name string) (protocol.Reply, error)
	Ping(ctx context.Context) error
	Registry() *command.Registry
}

var _ Daemon = (*protocol.Client)(nil)

// Spectra persists acquisitions. A nil Spectra disables /api/spectra.
type Spectra interface {
	Save(ctx context.Context, sp *spectrum.Spectrum) (int64, error)
	Get(ctx context.Context, id int64) (spectrum.Spectrum, error)
	List(ctx context.Context, limit int) ([]spectrum.Spectrum, error)
	Delete(ctx context.Context, id int64) error
}

type Options struct {
	ID             string
	CorsOrigins    []string
	TrustedProxies []string
	StreamInterval time.Duration
	Spectra        Spectra
	// Auth guards every /api route when set.
	Auth           auth.Validator
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	daemon   Daemon
	acquirer *spectrum.Acquirer
	spectra  Spectra
	auth     auth.Validator
	interval time.Duration
	origins  []string
	upgrader websocket.Upgrader
	router   *gin.Engine
}

func New(addr string, daemon Daemon, opts Options) *Server {
	if opts.ID == "" {
		opts.ID = "stsapi"
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = time.Second
	}
	if len(opts.TrustedProxies) == 0 {
		opts.TrustedProxies = []string{"127.0.0.1", "::1"}
	}
	origins := normalizeOrigins(opts.CorsOrigins)

	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.HeaderToken},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies(opts.TrustedProxies)

	s := &Server{
		ID:       opts.ID,
		Addr:     addr,
		Appeared: time.Now(),
		daemon:   daemon,
		acquirer: spectrum.NewAcquirer(daemon),
		spectra:  opts.Spectra,
		auth:     opts.Auth,
		interval: opts.StreamInterval,
		origins:  origins,
		router:   r,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("service", s.ID).Str("addr", s.Addr).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Str("service", s.ID).Msg("api stopped")
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	log.Warn().Str("origin", origin).Str("remote_addr", r.RemoteAddr).Msg("stream origin rejected")
	return false
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
