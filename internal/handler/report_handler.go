package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/internal/service"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
	"github.com/desa-connect/aspirasi-api/pkg/export"
	"github.com/desa-connect/aspirasi-api/pkg/response"
)

// ReportHandler exposes the citizen report endpoints.
type ReportHandler struct {
	service *service.ReportService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc *service.ReportService, csv *export.CSVExporter, pdf *export.PDFExporter) *ReportHandler {
	return &ReportHandler{service: svc, csv: csv, pdf: pdf}
}

// Create godoc
// @Summary Submit a report
// @Description Submit a new citizen report; it starts in the pending state
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	report, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, report, nil)
}

// List godoc
// @Summary List reports
// @Description Residents see their own reports; administrators see all
// @Tags Reports
// @Produce json
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.ReportListRequest{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if claims.Role == models.RoleAdmin {
		req.CreatedBy = c.Query("created_by")
	} else {
		req.CreatedBy = claims.UserID
	}

	reports, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, pagination)
}

// Get godoc
// @Summary Report detail
// @Description Full report including timeline and comments
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

type changeStatusPayload struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

// ChangeStatus godoc
// @Summary Change report status
// @Description Relabel a report; any status may move to any other status
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body changeStatusPayload true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/status [patch]
func (h *ReportHandler) ChangeStatus(c *gin.Context) {
	var payload changeStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	report, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"),
		models.ReportStatus(payload.Status), payload.Message, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

type commentPayload struct {
	Text string `json:"text" binding:"required"`
}

// AddComment godoc
// @Summary Comment on a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body commentPayload true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/comments [post]
func (h *ReportHandler) AddComment(c *gin.Context) {
	var payload commentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "comment text required"))
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), payload.Text, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, comment, nil)
}

// Delete godoc
// @Summary Delete a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Markers godoc
// @Summary Map markers
// @Description Coordinates and status of every report for the public map
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/markers [get]
func (h *ReportHandler) Markers(c *gin.Context) {
	markers, err := h.service.Markers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, markers, nil)
}

// ExportCSV godoc
// @Summary Export reports as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/export/csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	dataset, err := h.service.RegisterDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV"))
		return
	}

	filename := fmt.Sprintf("laporan-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export reports as PDF
// @Tags Reports
// @Produce application/pdf
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /reports/export/pdf [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	dataset, err := h.service.RegisterDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := h.pdf.Render(dataset, "Rekap Laporan Warga")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF"))
		return
	}

	filename := fmt.Sprintf("laporan-%s.pdf", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
