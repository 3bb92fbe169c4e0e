package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/internal/service"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
	"github.com/desa-connect/aspirasi-api/pkg/response"
)

// BlogHandler exposes the village news endpoints.
type BlogHandler struct {
	service *service.BlogService
}

// NewBlogHandler constructs the handler.
func NewBlogHandler(svc *service.BlogService) *BlogHandler {
	return &BlogHandler{service: svc}
}

// List godoc
// @Summary List news posts
// @Description Public callers only see published posts; administrators see drafts too
// @Tags Blog
// @Produce json
// @Param tag query string false "Tag filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blog [get]
func (h *BlogHandler) List(c *gin.Context) {
	req := service.BlogListRequest{
		Tag:      c.Query("tag"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 10),
	}

	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleAdmin {
		req.Status = c.Query("status")
	} else {
		req.Status = string(models.BlogPublished)
	}

	posts, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, pagination)
}

// GetBySlug godoc
// @Summary Read a published post
// @Tags Blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blog/{slug} [get]
func (h *BlogHandler) GetBySlug(c *gin.Context) {
	post, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Get godoc
// @Summary Post detail by id
// @Tags Blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/blog/{id} [get]
func (h *BlogHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Create godoc
// @Summary Publish or draft a news post
// @Tags Blog
// @Accept json
// @Produce json
// @Param payload body service.BlogPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/blog [post]
func (h *BlogHandler) Create(c *gin.Context) {
	var req service.BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, post, nil)
}

// Update godoc
// @Summary Update a news post
// @Tags Blog
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.BlogPostRequest true "Post payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/blog/{id} [put]
func (h *BlogHandler) Update(c *gin.Context) {
	var req service.BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, post, nil)
}

// Delete godoc
// @Summary Delete a news post
// @Tags Blog
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/blog/{id} [delete]
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
