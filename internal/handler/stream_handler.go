package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/middleware"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
	ws "github.com/Abdullah-webd/myschoolmanagerexamportal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// StreamHandler relays submission events over WebSocket so teachers can
// watch attempts land in real time.
type StreamHandler struct {
	rdb         *redis.Client
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(rdb *redis.Client, examService *service.ExamService, log zerolog.Logger, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		rdb:         rdb,
		examService: examService,
		log:         log.With().Str("component", "stream_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// SubmissionStream godoc
// WS /ws/v1/exams/:id/submissions/stream
// Upgrades to WebSocket and forwards submission events for the exam as
// they are published. Teachers may only stream their own exams.
func (h *StreamHandler) SubmissionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	actor := &model.User{ID: claims.UserID, Role: claims.Role}
	if err := h.examService.VerifyOwnership(c.Request.Context(), examID, actor); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this exam"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("exam_id", examID.String()).
		Str("user_id", claims.UserID.String()).
		Logger()

	wsLog.Info().Msg("Watcher connected")

	channel := config.CacheKey.ExamSubmissionChannel(examID.String())
	pubsub := h.rdb.Subscribe(c.Request.Context(), channel)
	defer pubsub.Close()

	// All writes happen on this goroutine; the read loop only reports
	// pings and disconnects over the channel.
	pings := make(chan struct{}, 1)
	go h.readLoop(conn, wsLog, pings)

	events := pubsub.Channel()
	for {
		select {
		case _, ok := <-pings:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, ok := <-events:
			if !ok {
				return
			}
			err := ws.WriteTyped(conn, ws.SubmissionMessage{
				Event:      ws.EventSubmission,
				Submission: json.RawMessage(msg.Payload),
			})
			if err != nil {
				wsLog.Debug().Err(err).Msg("Watcher write failed, closing")
				return
			}
		}
	}
}

// readLoop reads client frames, forwarding pings and closing the channel
// on disconnect, which unblocks the relay loop.
func (h *StreamHandler) readLoop(conn *websocket.Conn, wsLog zerolog.Logger, pings chan<- struct{}) {
	defer close(pings)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Watcher disconnected")
			}
			return
		}

		if msg.Action == ws.ActionPing {
			select {
			case pings <- struct{}{}:
			default: // a pong is already pending
			}
		}
	}
}
