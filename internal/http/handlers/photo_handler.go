// Photo HTTP handlers.
//
// Uploads go straight from the client to object storage:
//   - POST   /profiles/me/photos/upload-url   (presigned PUT for a new key)
//   - POST   /profiles/me/photos              (confirm an uploaded key)
//   - DELETE /profiles/me/photos              (remove a photo by URL)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UploadURLRequest asks for a presigned upload of one image.
type UploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required" example:"image/jpeg"`
}

// ConfirmPhotoRequest names an uploaded object key.
type ConfirmPhotoRequest struct {
	Key string `json:"key" binding:"required" example:"b7f7c1de-52f8-4f4e-9d43-3f7a2a1c9b10/1718000000000000000.jpg"`
}

// DeletePhotoRequest names a photo URL on the caller's profile.
type DeletePhotoRequest struct {
	URL string `json:"url" binding:"required"`
}

// PhotoUploadURL godoc
// @ID          photoUploadURL
// @Summary     Request a photo upload URL
// @Tags        Photos
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.UploadURLRequest  true  "Content type"
// @Success     200   {object}  services.UploadTicket
// @Failure     409   {object}  handlers.ErrorResponse  "Photo limit reached"
// @Failure     415   {object}  handlers.ErrorResponse  "Unsupported content type"
// @Failure     503   {object}  handlers.ErrorResponse  "Storage not configured"
// @Router      /profiles/me/photos/upload-url [post]
func (h *Handlers) PhotoUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_type required")
		return
	}
	t, err := h.photoSvc.UploadURL(c.Request.Context(), userID(c), strings.TrimSpace(req.ContentType))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, t)
}

// ConfirmPhoto godoc
// @ID          confirmPhoto
// @Summary     Attach an uploaded photo
// @Description Verifies the object exists and appends its public URL to the caller's profile.
// @Tags        Photos
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ConfirmPhotoRequest  true  "Uploaded key"
// @Success     200   {object}  domain.Profile
// @Failure     403   {object}  handlers.ErrorResponse  "Key not owned by caller"
// @Failure     404   {object}  handlers.ErrorResponse  "Object not uploaded"
// @Router      /profiles/me/photos [post]
func (h *Handlers) ConfirmPhoto(c *gin.Context) {
	var req ConfirmPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "key required")
		return
	}
	p, err := h.photoSvc.Confirm(c.Request.Context(), userID(c), strings.TrimSpace(req.Key))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePhoto godoc
// @ID          deletePhoto
// @Summary     Remove a photo
// @Tags        Photos
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.DeletePhotoRequest  true  "Photo URL"
// @Success     200   {object}  domain.Profile
// @Failure     404   {object}  handlers.ErrorResponse  "Photo not on profile"
// @Router      /profiles/me/photos [delete]
func (h *Handlers) DeletePhoto(c *gin.Context) {
	var req DeletePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "url required")
		return
	}
	p, err := h.photoSvc.Delete(c.Request.Context(), userID(c), strings.TrimSpace(req.URL))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}
