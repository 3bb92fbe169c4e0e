package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/desa-connect/aspirasi-api/internal/service"
	"github.com/desa-connect/aspirasi-api/pkg/response"
)

// DashboardHandler serves the aggregated portal statistics.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Overview godoc
// @Summary Portal statistics
// @Description Report totals by status and category plus the latest submissions
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
