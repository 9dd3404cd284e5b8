package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/stsctl/internal/auth"
	"github.com/danmuck/stsctl/internal/protocol/frame"
	"github.com/danmuck/stsctl/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type commandInfo struct {
	Name   string `json:"name"`
	Opcode string `json:"opcode"`
	Group  string `json:"group"`
}

type replyBody struct {
	Command     string `json:"command"`
	Opcode      string `json:"opcode"`
	Payload     string `json:"payload"`
	Bytes       int    `json:"bytes"`
	Chunks      int    `json:"chunks"`
	Silent      bool   `json:"silent"`
	Termination string `json:"termination"`
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
		})
	})
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", auth.Middleware(s.auth))
	api.GET("/commands", s.handleCommands)
	api.POST("/commands/:name", s.handleExecute)
	api.POST("/acquire_spectrum", s.handleAcquireSpectrum)
	api.POST("/acquire_wavelengths", s.handleAcquireWavelengths)

	api.POST("/spectra", s.handleSaveSpectrum)
	api.GET("/spectra", s.handleListSpectra)
	api.GET("/spectra/:id", s.handleGetSpectrum)
	api.DELETE("/spectra/:id", s.handleDeleteSpectrum)

	api.GET("/stream", s.handleStream)
}

func (s *Server) handleReady(c *gin.Context) {
	if err := s.daemon.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{
			"ready":   false,
			"service": s.ID,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":   true,
		"uptime":  time.Since(s.Appeared).String(),
		"service": s.ID,
	})
}

func (s *Server) handleCommands(c *gin.Context) {
	all := s.daemon.Registry().All()
	out := make([]commandInfo, 0, len(all))
	for _, cmd := range all {
		out = append(out, commandInfo{
			Name:   cmd.Name,
			Opcode: fmt.Sprintf("0x%02X", cmd.Opcode),
			Group:  cmd.Group.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"commands": out})
}

// handleExecute runs one command. A request with a parameter is a setter and
// answers {"status":"200"} once the frame is written.
func (s *Server) handleExecute(c *gin.Context) {
	p, err := parameterFromBody(c.Request)
	if err != nil {
		abortWith(c, err)
		return
	}
	reply, err := s.daemon.Execute(c.Request.Context(), c.Param("name"), p)
	if err != nil {
		abortWith(c, err)
		return
	}
	if !reply.Awaited {
		c.JSON(http.StatusOK, gin.H{"status": "200"})
		return
	}
	c.JSON(http.StatusOK, replyBody{
		Command:     reply.Command.Name,
		Opcode:      fmt.Sprintf("0x%02X", reply.Command.Opcode),
		Payload:     string(reply.Payload),
		Bytes:       len(reply.Payload),
		Chunks:      reply.Chunks,
		Silent:      reply.Silent(),
		Termination: reply.Termination.String(),
	})
}

func (s *Server) handleAcquireSpectrum(c *gin.Context) {
	values, err := s.acquirer.Values(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (s *Server) handleAcquireWavelengths(c *gin.Context) {
	values, err := s.acquirer.Wavelengths(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (s *Server) handleSaveSpectrum(c *gin.Context) {
	if s.spectra == nil {
		abortWith(c, ErrStoreDisabled)
		return
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := decodeOptional(c.Request, &body); err != nil {
		abortWith(c, err)
		return
	}
	sp, err := s.acquirer.Acquire(c.Request.Context(), body.Label)
	if err != nil {
		abortWith(c, err)
		return
	}
	if _, err := s.spectra.Save(c.Request.Context(), &sp); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

func (s *Server) handleListSpectra(c *gin.Context) {
	if s.spectra == nil {
		abortWith(c, ErrStoreDisabled)
		return
	}
	limit := store.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			abortWith(c, fmt.Errorf("%w: limit %q", ErrBadRequest, raw))
			return
		}
		limit = n
	}
	list, err := s.spectra.List(c.Request.Context(), limit)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spectra": list})
}

func (s *Server) handleGetSpectrum(c *gin.Context) {
	id, ok := s.spectrumID(c)
	if !ok {
		return
	}
	sp, err := s.spectra.Get(c.Request.Context(), id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (s *Server) handleDeleteSpectrum(c *gin.Context) {
	id, ok := s.spectrumID(c)
	if !ok {
		return
	}
	if err := s.spectra.Delete(c.Request.Context(), id); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) spectrumID(c *gin.Context) (int64, bool) {
	if s.spectra == nil {
		abortWith(c, ErrStoreDisabled)
		return 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWith(c, fmt.Errorf("%w: id %q", ErrBadRequest, c.Param("id")))
		return 0, false
	}
	return id, true
}

// parameterFromBody reads an optional {"parameter": value}. Strings, numbers
// and booleans are accepted; a missing body, missing key or null means none.
func parameterFromBody(r *http.Request) (frame.Parameter, error) {
	var body struct {
		Parameter json.RawMessage `json:"parameter"`
	}
	if err := decodeOptional(r, &body); err != nil {
		return frame.NoParam, err
	}
	raw := bytes.TrimSpace(body.Parameter)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return frame.NoParam, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return frame.NoParam, fmt.Errorf("%w: parameter: %v", ErrBadRequest, err)
	}
	switch v := v.(type) {
	case string:
		// An empty parameter encodes like a query and would be left unread.
		if v == "" {
			return frame.NoParam, fmt.Errorf("%w: parameter is empty", ErrBadRequest)
		}
		return frame.Param(v), nil
	case json.Number, bool:
		return frame.Param(v), nil
	default:
		return frame.NoParam, fmt.Errorf("%w: parameter must be a string, number or boolean", ErrBadRequest)
	}
}

func decodeOptional(r *http.Request, out any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, maxBodyBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: malformed json at offset %d", ErrBadRequest, syntaxErr.Offset)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

var _ Spectra = (*store.Store)(nil)
