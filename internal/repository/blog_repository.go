package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/desa-connect/aspirasi-api/internal/models"
)

// BlogRepository provides persistence for blog posts.
type BlogRepository struct {
	db *sqlx.DB
}

// NewBlogRepository creates the repository.
func NewBlogRepository(db *sqlx.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

const blogColumns = `id, title, slug, body, author_id, status, tags, cover_image, published_at, created_at, updated_at`

// List returns posts matching the filter, newest first.
func (r *BlogRepository) List(ctx context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error) {
	baseQuery := `FROM blog_posts WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, filter.Tag)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s %s ORDER BY COALESCE(published_at, created_at) DESC LIMIT %d OFFSET %d`, blogColumns, baseQuery, pageSize, offset)
	var posts []models.BlogPost
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blog posts: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count blog posts: %w", err)
	}
	return posts, total, nil
}

// GetByID returns a post by identifier.
func (r *BlogRepository) GetByID(ctx context.Context, id string) (*models.BlogPost, error) {
	query := fmt.Sprintf(`SELECT %s FROM blog_posts WHERE id = $1`, blogColumns)
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetBySlug returns a post by its URL slug.
func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	query := fmt.Sprintf(`SELECT %s FROM blog_posts WHERE slug = $1`, blogColumns)
	var post models.BlogPost
	if err := r.db.GetContext(ctx, &post, query, slug); err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts a new post.
func (r *BlogRepository) Create(ctx context.Context, post *models.BlogPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	const query = `INSERT INTO blog_posts (id, title, slug, body, author_id, status, tags, cover_image, published_at, created_at, updated_at)
VALUES (:id, :title, :slug, :body, :author_id, :status, :tags, :cover_image, :published_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create blog post: %w", err)
	}
	return nil
}

// Update modifies an existing post.
func (r *BlogRepository) Update(ctx context.Context, post *models.BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blog_posts SET title = :title, slug = :slug, body = :body, status = :status, tags = :tags,
cover_image = :cover_image, published_at = :published_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("update blog post: %w", err)
	}
	return nil
}

// Delete removes a post.
func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM blog_posts WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete blog post: %w", err)
	}
	return nil
}
