package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type fakeObjectStore struct {
	keys []string
	err  error
}

func (f *fakeObjectStore) Put(_ context.Context, objectKey, _ string, r io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	io.Copy(io.Discard, r) //nolint:errcheck
	f.keys = append(f.keys, objectKey)
	return "https://cdn.desa.example/" + objectKey, nil
}

func TestUploadServiceStoresPhoto(t *testing.T) {
	store := &fakeObjectStore{}
	svc := NewUploadService(store, 1<<20, zap.NewNop())

	result, err := svc.UploadPhoto(context.Background(), wargaClaims("u1"), "foto.jpg", "image/jpeg",
		bytes.NewReader([]byte("fake-jpeg")), 9)
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "u1/"))
	assert.True(t, strings.HasSuffix(store.keys[0], ".jpg"))
	assert.Equal(t, "https://cdn.desa.example/"+store.keys[0], result.URL)
}

func TestUploadServiceRequiresAuth(t *testing.T) {
	svc := NewUploadService(&fakeObjectStore{}, 1<<20, zap.NewNop())

	_, err := svc.UploadPhoto(context.Background(), nil, "foto.jpg", "image/jpeg", bytes.NewReader(nil), 9)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceRejectsOversizedFile(t *testing.T) {
	svc := NewUploadService(&fakeObjectStore{}, 10, zap.NewNop())

	_, err := svc.UploadPhoto(context.Background(), wargaClaims("u1"), "foto.jpg", "image/jpeg",
		bytes.NewReader(make([]byte, 11)), 11)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceRejectsUnknownType(t *testing.T) {
	svc := NewUploadService(&fakeObjectStore{}, 1<<20, zap.NewNop())

	_, err := svc.UploadPhoto(context.Background(), wargaClaims("u1"), "virus.exe", "application/octet-stream",
		bytes.NewReader([]byte("mz")), 2)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
