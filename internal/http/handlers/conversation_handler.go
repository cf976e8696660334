// Conversation and message HTTP handlers.
//
// This file exposes chat endpoints between matched users:
//   - GET  /conversations                  (caller's conversations, ETag support)
//   - GET  /conversations/{id}/messages    (paginated messages, ETag support)
//   - POST /conversations/{id}/messages    (send a message, Idempotency-Key support)
//
// Handlers are transport-thin: membership, normalization and length limits
// are enforced by the services; the handlers add conditional responses and
// surface idempotent replays.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a message was already
// sent with it by the same user in the same conversation, the original
// message is returned with 200 and `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/http/middleware"
	"github.com/tbourn/go-match-backend/internal/services"
)

// HeaderIdempotencyReplayed marks a response served from a previous request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

//
// DTOs
//

// ListConversationsResponse wraps the caller's conversations.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

// PostMessageRequest is the JSON payload for sending a message.
//
// Text is normalized by the service (line endings, blank-line runs, outer
// whitespace) and must be non-empty afterwards.
type PostMessageRequest struct {
	Text string `json:"text" binding:"required" example:"Coffee on Saturday?"`
}

// PostMessageResponse is the JSON envelope for a sent message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Handlers
//

// ListConversations godoc
// @ID          listConversations
// @Summary     List my conversations
// @Description Returns the conversations of the caller's matches, most recent first, with both
// @Description participants summarized. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header    string  false  "Return 304 if ETag matches"
// @Success     200            {object}  handlers.ListConversationsResponse
// @Header      200            {string}  ETag  "Weak ETag for current result"
// @Success     304            {string}  string  "Not Modified"
// @Failure     401            {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500            {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		serviceError(c, services.ErrNotAuthenticated, ErrCodeListFailed)
		return
	}

	if count, ts, err := h.convSvc.ListVersion(ctx, uid); err == nil {
		if notModified(c, weakETag("conversations", uid, count, ts)) {
			return
		}
	}

	items, err := h.convSvc.List(ctx, uid)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a page of messages, oldest first, each with a sender summary.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id             path      string  true   "Conversation ID (UUID)"  format(uuid)
// @Param       page           query     int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query     int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header    string  false  "Return 304 if ETag matches"
// @Success     200            {object}  handlers.ListMessagesResponse
// @Success     304            {string}  string  "Not Modified"
// @Failure     400            {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403            {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404            {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500            {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	convID := c.Param("id")
	if _, err := uuid.Parse(convID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// The version check authorizes too, so a stranger never sees an ETag.
	count, ts, err := h.msgSvc.MessagesVersion(ctx, uid, convID)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	if notModified(c, weakETag("messages", convID, count, ts)) {
		return
	}

	items, total, err := h.msgSvc.ListPage(ctx, uid, convID, page, pageSize)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Description Appends a message to the conversation and pushes it to realtime subscribers.
// @Description Supports idempotency via the Idempotency-Key header (same key → same message).
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string  false  "Idempotency key for safe retries"
// @Param       id               path      string  true   "Conversation ID (UUID)"  format(uuid)
// @Param       body             body      handlers.PostMessageRequest  true  "Message"
// @Success     201              {object}  handlers.PostMessageResponse  "Message sent"
// @Success     200              {object}  handlers.PostMessageResponse  "Idempotent replay"
// @Failure     400              {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     403              {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404              {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500              {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	convID := c.Param("id")
	if _, err := uuid.Parse(convID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeEmptyMessage, "text required")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	m, replayed, err := h.msgSvc.SendIdempotent(c.Request.Context(), userID(c), convID, req.Text, key)
	if err != nil {
		serviceError(c, err, ErrCodeCreateFailed)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, PostMessageResponse{Message: m})
		return
	}
	ok(c, http.StatusCreated, PostMessageResponse{Message: m})
}
