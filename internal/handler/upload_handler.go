package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/desa-connect/aspirasi-api/internal/service"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
	"github.com/desa-connect/aspirasi-api/pkg/response"
)

// UploadHandler accepts report photos and stores them in object storage.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// UploadPhoto godoc
// @Summary Upload a report photo
// @Description Accepts one multipart image and returns its public URL
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Photo file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /uploads/photos [post]
func (h *UploadHandler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "photo file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read photo"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.service.UploadPhoto(
		c.Request.Context(),
		claimsFromContext(c),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, result, nil)
}
