package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type blogRepository interface {
	List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error)
	GetByID(ctx context.Context, id string) (*models.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id string) error
}

// BlogService handles administrator announcements. The lifecycle is the
// binary draft/published switch, nothing more.
type BlogService struct {
	repo      blogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlogService constructs the service.
func NewBlogService(repo blogRepository, validate *validator.Validate, logger *zap.Logger) *BlogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &BlogService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("blog_status", func(fl validator.FieldLevel) bool {
		switch models.BlogStatus(fl.Field().String()) {
		case models.BlogDraft, models.BlogPublished:
			return true
		default:
			return false
		}
	})
	return svc
}

// BlogPostRequest describes the create/update payload.
type BlogPostRequest struct {
	Title      string   `json:"title" validate:"required,min=3,max=150"`
	Body       string   `json:"body" validate:"required,min=10"`
	Status     string   `json:"status" validate:"required,blog_status"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"cover_image"`
}

// BlogListRequest describes list filters.
type BlogListRequest struct {
	Status   string
	Tag      string
	Page     int
	PageSize int
}

// List returns posts with pagination. Public callers should pass the
// published filter; the admin screen lists everything.
func (s *BlogService) List(ctx context.Context, req BlogListRequest) ([]models.BlogPost, *models.Pagination, error) {
	filter := models.BlogFilter{Tag: req.Tag, Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status := models.BlogStatus(req.Status)
		if status != models.BlogDraft && status != models.BlogPublished {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown post status")
		}
		filter.Status = &status
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}

	posts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list blog posts")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return posts, pagination, nil
}

// Get returns a post by id.
func (s *BlogService) Get(ctx context.Context, id string) (*models.BlogPost, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load blog post")
	}
	return post, nil
}

// GetBySlug returns a published post by its slug. Drafts stay invisible to
// public readers.
func (s *BlogService) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load blog post")
	}
	if post.Status != models.BlogPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
	}
	return post, nil
}

// Create registers a new post authored by the admin actor.
func (s *BlogService) Create(ctx context.Context, req BlogPostRequest, actor *models.JWTClaims) (*models.BlogPost, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may publish posts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	post := &models.BlogPost{
		Title:      strings.TrimSpace(req.Title),
		Slug:       Slugify(req.Title),
		Body:       req.Body,
		AuthorID:   actor.UserID,
		Status:     models.BlogStatus(req.Status),
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
	}
	if post.Status == models.BlogPublished {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create blog post")
	}
	return post, nil
}

// Update modifies an existing post. Moving a draft to published stamps
// published_at once; republishing keeps the original timestamp.
func (s *BlogService) Update(ctx context.Context, id string, req BlogPostRequest, actor *models.JWTClaims) (*models.BlogPost, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may edit posts")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blog post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load blog post")
	}

	existing.Title = strings.TrimSpace(req.Title)
	existing.Slug = Slugify(req.Title)
	existing.Body = req.Body
	existing.Tags = req.Tags
	existing.CoverImage = req.CoverImage
	newStatus := models.BlogStatus(req.Status)
	if newStatus == models.BlogPublished && existing.PublishedAt == nil {
		now := time.Now().UTC()
		existing.PublishedAt = &now
	}
	existing.Status = newStatus

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update blog post")
	}
	return existing, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete posts")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete blog post")
	}
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
