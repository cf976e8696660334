// Event HTTP handlers.
//
//   - GET /events        (upcoming community events, paginated)
//   - GET /events/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-match-backend/internal/services"
)

// ListEventsResponse wraps a page of events.
type ListEventsResponse struct {
	Events     []services.EventView `json:"events"`
	Pagination Pagination           `json:"pagination"`
}

// ListEvents godoc
// @ID          listEvents
// @Summary     List events
// @Description Returns events ordered by start time. spots_left is null for events without a cap.
// @Tags        Events
// @Produce     json
// @Param       page       query     int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query     int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200        {object}  handlers.ListEventsResponse
// @Failure     500        {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events [get]
func (h *Handlers) ListEvents(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.eventSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListEventsResponse{
		Events:     items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetEvent godoc
// @ID          getEvent
// @Summary     Get an event
// @Tags        Events
// @Produce     json
// @Param       id   path      string  true  "Event ID"
// @Success     200  {object}  services.EventView
// @Failure     404  {object}  handlers.ErrorResponse  "Event not found"
// @Router      /events/{id} [get]
func (h *Handlers) GetEvent(c *gin.Context) {
	ev, err := h.eventSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ev)
}
