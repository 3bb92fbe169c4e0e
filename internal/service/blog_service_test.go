package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type fakeBlogRepo struct {
	posts  map[string]*models.BlogPost
	nextID int
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{posts: make(map[string]*models.BlogPost)}
}

func (f *fakeBlogRepo) List(_ context.Context, filter models.BlogFilter) ([]models.BlogPost, int, error) {
	var out []models.BlogPost
	for _, p := range f.posts {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeBlogRepo) GetByID(_ context.Context, id string) (*models.BlogPost, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *post
	return &out, nil
}

func (f *fakeBlogRepo) GetBySlug(_ context.Context, slug string) (*models.BlogPost, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			out := *p
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBlogRepo) Create(_ context.Context, post *models.BlogPost) error {
	f.nextID++
	post.ID = "b" + string(rune('0'+f.nextID))
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakeBlogRepo) Update(_ context.Context, post *models.BlogPost) error {
	if _, ok := f.posts[post.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakeBlogRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.posts, id)
	return nil
}

func newTestBlogService(repo *fakeBlogRepo) *BlogService {
	return NewBlogService(repo, validator.New(), zap.NewNop())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "gotong-royong-minggu-pagi", Slugify("Gotong Royong, Minggu Pagi!"))
	assert.Equal(t, "kerja-bakti-2026", Slugify("  Kerja Bakti 2026  "))
}

func TestBlogServiceCreatePublishedStampsTimestamp(t *testing.T) {
	svc := newTestBlogService(newFakeBlogRepo())

	post, err := svc.Create(context.Background(), BlogPostRequest{
		Title:  "Gotong Royong Minggu Pagi",
		Body:   "Warga diundang kerja bakti membersihkan saluran air.",
		Status: string(models.BlogPublished),
		Tags:   []string{"kegiatan"},
	}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "gotong-royong-minggu-pagi", post.Slug)
	require.NotNil(t, post.PublishedAt)
}

func TestBlogServiceCreateDraftHasNoTimestamp(t *testing.T) {
	svc := newTestBlogService(newFakeBlogRepo())

	post, err := svc.Create(context.Background(), BlogPostRequest{
		Title:  "Rencana Perbaikan Jalan",
		Body:   "Draft pengumuman perbaikan jalan desa tahap dua.",
		Status: string(models.BlogDraft),
	}, adminClaims())
	require.NoError(t, err)
	assert.Nil(t, post.PublishedAt)
}

func TestBlogServiceCreateForbiddenForWarga(t *testing.T) {
	svc := newTestBlogService(newFakeBlogRepo())

	_, err := svc.Create(context.Background(), BlogPostRequest{
		Title:  "Pengumuman",
		Body:   "Isi pengumuman yang cukup panjang.",
		Status: string(models.BlogPublished),
	}, wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBlogServicePublishStampsOnce(t *testing.T) {
	repo := newFakeBlogRepo()
	svc := newTestBlogService(repo)

	post, err := svc.Create(context.Background(), BlogPostRequest{
		Title:  "Rencana Perbaikan Jalan",
		Body:   "Draft pengumuman perbaikan jalan desa tahap dua.",
		Status: string(models.BlogDraft),
	}, adminClaims())
	require.NoError(t, err)

	published, err := svc.Update(context.Background(), post.ID, BlogPostRequest{
		Title:  "Rencana Perbaikan Jalan",
		Body:   "Pengumuman perbaikan jalan desa tahap dua.",
		Status: string(models.BlogPublished),
	}, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	firstStamp := *published.PublishedAt

	time.Sleep(5 * time.Millisecond)
	republished, err := svc.Update(context.Background(), post.ID, BlogPostRequest{
		Title:  "Rencana Perbaikan Jalan",
		Body:   "Pengumuman perbaikan jalan desa tahap dua, direvisi.",
		Status: string(models.BlogPublished),
	}, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, republished.PublishedAt)
	assert.Equal(t, firstStamp, *republished.PublishedAt)
}

func TestBlogServiceGetBySlugHidesDrafts(t *testing.T) {
	repo := newFakeBlogRepo()
	svc := newTestBlogService(repo)

	post, err := svc.Create(context.Background(), BlogPostRequest{
		Title:  "Rencana Perbaikan Jalan",
		Body:   "Draft pengumuman perbaikan jalan desa tahap dua.",
		Status: string(models.BlogDraft),
	}, adminClaims())
	require.NoError(t, err)

	_, err = svc.GetBySlug(context.Background(), post.Slug)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBlogServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newTestBlogService(newFakeBlogRepo())

	_, _, err := svc.List(context.Background(), BlogListRequest{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
