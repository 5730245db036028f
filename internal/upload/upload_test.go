package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"), maxBytes, "http://localhost:3001/", nil)
	require.NoError(t, err)
	return s
}

func TestNewStore(t *testing.T) {
	_, err := NewStore("", 10, "", nil)
	assert.Error(t, err)

	_, err = NewStore(t.TempDir(), 0, "", nil)
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("png is stored", func(t *testing.T) {
		s := newTestStore(t, 1024)

		res, err := s.Save(ctx, bytes.NewReader(tinyPNG))
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(res.Filename, ".png"), res.Filename)
		assert.Equal(t, "http://localhost:3001/uploads/"+res.Filename, res.URL)
		assert.Equal(t, "image/png", res.ContentType)
		assert.Equal(t, int64(len(tinyPNG)), res.Size)

		onDisk, err := os.ReadFile(filepath.Join(s.Dir(), res.Filename))
		require.NoError(t, err)
		assert.Equal(t, tinyPNG, onDisk)
	})

	t.Run("names are unique", func(t *testing.T) {
		s := newTestStore(t, 1024)
		a, err := s.Save(ctx, bytes.NewReader(tinyPNG))
		require.NoError(t, err)
		b, err := s.Save(ctx, bytes.NewReader(tinyPNG))
		require.NoError(t, err)
		assert.NotEqual(t, a.Filename, b.Filename)
	})

	tests := []struct {
		name    string
		limit   int64
		content []byte
		wantErr error
	}{
		{"empty", 1024, nil, ErrEmpty},
		{"text is rejected", 1024, []byte("just some words"), ErrNotImage},
		{"pdf is rejected", 1024, []byte("%PDF-1.4\n%...."), ErrNotImage},
		{"over the limit", int64(len(tinyPNG) - 1), tinyPNG, ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, tc.limit)
			_, err := s.Save(ctx, bytes.NewReader(tc.content))
			assert.ErrorIs(t, err, tc.wantErr)

			entries, err := os.ReadDir(s.Dir())
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing written")
		})
	}
}
