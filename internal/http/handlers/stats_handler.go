// Stats HTTP handler.
//
//   - GET /me/stats   (likes received and match count)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MyStats godoc
// @ID          myStats
// @Summary     My counters
// @Description Likes received and number of matches.
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.UserStats
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /me/stats [get]
func (h *Handlers) MyStats(c *gin.Context) {
	st, err := h.statsSvc.ForUser(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}
