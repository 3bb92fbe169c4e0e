package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type objectStore interface {
	Put(ctx context.Context, objectKey, contentType string, r io.Reader, size int64) (string, error)
}

// allowedPhotoTypes maps accepted photo MIME types to file extensions.
var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UploadService stores report photos in object storage.
type UploadService struct {
	store   objectStore
	maxSize int64
	logger  *zap.Logger
}

func NewUploadService(store objectStore, maxSize int64, logger *zap.Logger) *UploadService {
	return &UploadService{store: store, maxSize: maxSize, logger: logger}
}

// UploadResult carries the stored object's public URL.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// UploadPhoto validates and stores one photo, keyed by the uploader's id
// and the upload date so objects stay traceable to their owner.
func (s *UploadService) UploadPhoto(ctx context.Context, actor *models.JWTClaims, filename, contentType string, r io.Reader, size int64) (*UploadResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrUploadFailed, "object storage is not configured")
	}
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}

	ext, ok := allowedPhotoTypes[strings.ToLower(contentType)]
	if !ok {
		// Fall back to the original extension when browsers send a
		// generic content type for a known image file.
		ext = strings.ToLower(path.Ext(filename))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only JPEG, PNG and WebP images are accepted")
		}
	}

	key := fmt.Sprintf("%s/%s/%s%s",
		actor.UserID,
		time.Now().UTC().Format("2006-01"),
		uuid.NewString(),
		ext,
	)

	url, err := s.store.Put(ctx, key, contentType, r, size)
	if err != nil {
		s.logger.Error("photo upload failed", zap.String("key", key), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store photo")
	}

	return &UploadResult{URL: url, Key: key}, nil
}
