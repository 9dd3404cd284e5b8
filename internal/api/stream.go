package api

import (
	"context"
	"time"

	"github.com/danmuck/stsctl/internal/protocol/command"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const streamWriteTimeout = 5 * time.Second

type streamFrame struct {
	Seq        int       `json:"seq"`
	Values     []float64 `json:"values,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Error      string    `json:"error,omitempty"`
}

// handleStream pushes get_current_spectrum every stream interval until the
// client goes away or the daemon fails.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", c.Request.RemoteAddr).Msg("stream upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("stream read ended")
				}
				return
			}
		}
	}()

	log.Info().Str("remote_addr", c.Request.RemoteAddr).Dur("interval", s.interval).Msg("stream opened")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		values, err := s.acquirer.Read(ctx, command.GetCurrentSpectrum)
		if ctx.Err() != nil {
			return
		}
		out := streamFrame{Seq: seq, Values: values, CapturedAt: time.Now().UTC()}
		if err != nil {
			out.Error = err.Error()
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if werr := conn.WriteJSON(out); werr != nil {
			log.Debug().Err(werr).Msg("stream write failed")
			return
		}
		if err != nil {
			log.Warn().Err(err).Int("seq", seq).Msg("stream stopped on daemon error")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "daemon error"),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
