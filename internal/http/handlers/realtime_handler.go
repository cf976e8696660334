// Realtime HTTP handler.
//
//   - GET /realtime/ws   (websocket upgrade)
//
// Every session is subscribed to the caller's user topic (match
// notifications). Clients join and leave conversation topics with text
// frames:
//
//	{"type":"subscribe","conversation_id":"<uuid>"}
//	{"type":"unsubscribe","conversation_id":"<uuid>"}
//
// Joining re-checks conversation membership. All subscriptions are released
// when the socket closes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/observability"
	"github.com/tbourn/go-match-backend/internal/realtime"
	"github.com/tbourn/go-match-backend/internal/services"
)

// Client frame types.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
)

// clientFrame is a control message sent by the client.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// frameError is the data of an "error" envelope.
type frameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Browsers cannot set Authorization on websocket upgrades, so the token
// arrives via access_token; cookies are not used and any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Realtime godoc
// @ID          realtime
// @Summary     Realtime event stream
// @Description Upgrades to a websocket delivering "message" and "match" events. Authenticate with
// @Description the Authorization header or the access_token query parameter.
// @Tags        Realtime
// @Security    BearerAuth
// @Param       access_token  query  string  false  "Bearer token (for browsers)"
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse  "Realtime disabled"
// @Router      /realtime/ws [get]
func (h *Handlers) Realtime(c *gin.Context) {
	if h.hub == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "realtime is not enabled")
		return
	}
	uid := userID(c)
	if uid == "" {
		serviceError(c, services.ErrNotAuthenticated, ErrCodeInternal)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		lg := middleware.LoggerFrom(c)
		lg.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := realtime.NewConnection(uid, ws)
	conn.Start()
	h.hub.Subscribe(realtime.UserTopic(uid), conn)
	observability.RealtimeConnections.Inc()
	defer func() {
		h.hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "bye")
		observability.RealtimeConnections.Dec()
	}()

	ctx := c.Request.Context()
	conn.ReadLoop(func(data []byte) {
		h.handleFrame(ctx, uid, conn, data)
	})
}

// handleFrame applies one client frame for sub and replies on it.
func (h *Handlers) handleFrame(ctx context.Context, uid string, sub realtime.Subscriber, data []byte) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		replyError(sub, "", ErrCodeBadRequest, "frame must be a JSON object")
		return
	}
	if f.ConversationID == "" {
		replyError(sub, "", ErrCodeBadRequest, "conversation_id required")
		return
	}
	topic := realtime.ConversationTopic(f.ConversationID)

	switch f.Type {
	case frameSubscribe:
		if _, err := h.convSvc.Authorize(ctx, uid, f.ConversationID); err != nil {
			switch {
			case errors.Is(err, services.ErrForbiddenConversation):
				replyError(sub, topic, ErrCodeForbiddenConversation, err.Error())
			case errors.Is(err, services.ErrConversationNotFound):
				replyError(sub, topic, ErrCodeNotFound, err.Error())
			default:
				replyError(sub, topic, ErrCodeInternal, "subscription failed")
			}
			return
		}
		h.hub.Subscribe(topic, sub)
		reply(sub, realtime.EventSubscribed, topic, nil)
	case frameUnsubscribe:
		h.hub.Unsubscribe(topic, sub)
		reply(sub, realtime.EventUnsubscribed, topic, nil)
	default:
		replyError(sub, topic, ErrCodeBadRequest, "unknown frame type")
	}
}

func reply(sub realtime.Subscriber, eventType, topic string, data any) {
	if payload, err := realtime.Encode(eventType, topic, data); err == nil {
		_ = sub.Send(payload)
	}
}

func replyError(sub realtime.Subscriber, topic, code, msg string) {
	reply(sub, realtime.EventError, topic, frameError{Code: code, Message: msg})
}
