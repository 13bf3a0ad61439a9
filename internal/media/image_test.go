package media

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJPEGFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func TestWriteJPEG_DownscalesWideImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1600, 900))
	path := filepath.Join(t.TempDir(), "image.jpg")
	require.NoError(t, writeJPEG(path, src))

	out := decodeJPEGFile(t, path)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 450, out.Bounds().Dy(), "aspect ratio preserved")
}

func TestWriteJPEG_NeverUpscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 240))
	path := filepath.Join(t.TempDir(), "image.jpg")
	require.NoError(t, writeJPEG(path, src))

	out := decodeJPEGFile(t, path)
	assert.Equal(t, 320, out.Bounds().Dx())
	assert.Equal(t, 240, out.Bounds().Dy())
}

func TestPrepare_DownloadsAndCleansUp(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 100, 100))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	preparer := NewPreparer(5*time.Second, tmpDir)

	path, cleanup, err := preparer.Prepare(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	assert.True(t, strings.HasPrefix(path, tmpDir))
	decodeJPEGFile(t, path)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPrepare_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	_, _, err := NewPreparer(5*time.Second, tmpDir).Prepare(context.Background(), srv.URL)
	require.Error(t, err)

	// The scoped download dir is removed on failure too.
	entries, readErr := os.ReadDir(tmpDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
