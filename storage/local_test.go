package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	path, err := s.Upload(ctx, "design-1", "vogue-ai-design-design-1.png", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "designs/design-1/vogue-ai-design-design-1.png", path)

	reader, err := s.Download(ctx, path)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, s.Delete(ctx, path))
	_, err = s.Download(ctx, path)
	assert.Error(t, err)
}

func TestLocalStorageDeleteMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, s.Delete(context.Background(), "designs/none/missing.png"))
}

func TestGenerateStoragePath(t *testing.T) {
	assert.Equal(t, "designs/d1/export.png", generateStoragePath("d1", "export.png"))
	assert.Equal(t, "designs/d1/my_export.jpg", generateStoragePath("d1", "my export.jpg"))
	assert.Equal(t, "designs/d1/a_b.png", generateStoragePath("d1", "a/b.png"))
}
