package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/desa-connect/aspirasi-api/internal/service"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
	"github.com/desa-connect/aspirasi-api/pkg/response"
)

// AssistantHandler exposes the Mindes virtual assistant endpoints.
type AssistantHandler struct {
	service *service.AssistantService
}

// NewAssistantHandler constructs the handler.
func NewAssistantHandler(svc *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: svc}
}

// Chat godoc
// @Summary Ask the Mindes assistant
// @Description Answers portal questions in Bahasa Indonesia
// @Tags Assistant
// @Accept json
// @Produce json
// @Param payload body service.ChatRequest true "Question"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "message required"))
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reply, nil)
}

// Summarize godoc
// @Summary Summarize a report
// @Description Two sentence admin summary of a report and its history
// @Tags Assistant
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /assistant/reports/{id}/summary [get]
func (h *AssistantHandler) Summarize(c *gin.Context) {
	reply, err := h.service.SummarizeReport(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}
