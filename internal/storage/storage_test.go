package storage

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	data := []byte("png-bytes")
	require.NoError(t, s.Upload(ctx, "viz/embedding_pca.png", bytes.NewReader(data), int64(len(data)), "image/png"))

	ok, err := s.Exists(ctx, "viz/embedding_pca.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, "viz/embedding_pca.png")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, s.Delete(ctx, "viz/embedding_pca.png"))
	_, err = s.Download(ctx, "viz/embedding_pca.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "etc", "passwd"), s.GetURL("../../etc/passwd"))
}

func TestLocalStorage_GetURLWithPublicPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/static/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/static/embedding_tsne.png", s.GetURL("embedding_tsne.png"))
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeLocal},
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectStorageType(tt.endpoint), "endpoint %q", tt.endpoint)
	}
}

func TestNewStorage_Unsupported(t *testing.T) {
	_, err := NewStorage(&Config{Type: "ftp"})
	assert.Error(t, err)
}
