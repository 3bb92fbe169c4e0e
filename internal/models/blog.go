package models

import (
	"time"

	"github.com/lib/pq"
)

// BlogStatus is the binary publication state of a post.
type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
)

// BlogPost is an administrator-authored announcement.
type BlogPost struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Slug        string         `db:"slug" json:"slug"`
	Body        string         `db:"body" json:"body"`
	AuthorID    string         `db:"author_id" json:"author_id"`
	Status      BlogStatus     `db:"status" json:"status"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	CoverImage  string         `db:"cover_image" json:"cover_image"`
	PublishedAt *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// BlogFilter captures list criteria for posts.
type BlogFilter struct {
	Status   *BlogStatus
	Tag      string
	Page     int
	PageSize int
}
