package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quizhall/quizhall-backend/internal/middleware"
	"github.com/quizhall/quizhall-backend/internal/service"
	ws "github.com/quizhall/quizhall-backend/internal/websocket"
	"github.com/rs/zerolog"
)

const timerPushInterval = time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the attempt countdown over a WebSocket, so clients do not
// have to poll the time endpoint. The server clock stays authoritative.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// TimerStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/timer
// Pushes the remaining time every second. Sends an expired event and
// closes once the limit passes, which also finalizes the attempt server-side.
func (h *WSHandler) TimerStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	quizID := c.Param("quiz_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("quiz_id", quizID).
		Logger()
	wsLog.Debug().Msg("Timer stream connected")

	// Reader goroutine: pings keep the stream alive, anything else is noise.
	pings := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			var msg ws.RequestEnvelope
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	if !h.pushTick(c, conn, claims.UserID, quizID, wsLog) {
		return
	}

	ticker := time.NewTicker(timerPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Timer stream closed")
			return
		case <-pings:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case <-ticker.C:
			if !h.pushTick(c, conn, claims.UserID, quizID, wsLog) {
				return
			}
		}
	}
}

// pushTick sends one timer update. Returns false when the stream should end.
func (h *WSHandler) pushTick(c *gin.Context, conn *websocket.Conn, userID int, quizID string, wsLog zerolog.Logger) bool {
	check, err := h.attemptService.CheckTime(c.Request.Context(), userID, quizID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Time check failed")
		ws.WriteError(conn, "time check failed")
		return false
	}

	if check.Expired {
		ws.WriteTyped(conn, ws.ExpiredResponse{Event: ws.EventExpired})
		wsLog.Info().Msg("Attempt expired, closing timer stream")
		return false
	}

	// Untimed quizzes get no countdown; keep the stream open for pings.
	if check.RemainingSeconds == nil {
		return true
	}

	if err := ws.WriteTyped(conn, ws.TickResponse{
		Event:            ws.EventTick,
		RemainingSeconds: *check.RemainingSeconds,
		TimeLimitSeconds: check.TimeLimitSeconds,
	}); err != nil {
		return false
	}
	return true
}
