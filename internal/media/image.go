// Package media prepares article images for delivery: temp download,
// downscale, JPEG re-encode.
package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/deusflow/newspulse/internal/logger"
)

const (
	maxWidth    = 800
	jpegQuality = 85
)

type Preparer struct {
	client *http.Client
	tmpDir string
}

func NewPreparer(timeout time.Duration, tmpDir string) *Preparer {
	return &Preparer{
		client: &http.Client{Timeout: timeout},
		tmpDir: tmpDir,
	}
}

// Prepare downloads the image into a scoped temp directory, converts it to a
// downscaled JPEG, and returns the prepared path with a cleanup func that
// removes the whole directory. The caller runs cleanup after delivery.
func (p *Preparer) Prepare(ctx context.Context, url string) (string, func(), error) {
	dir, err := os.MkdirTemp(p.tmpDir, "downloading_")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}

	img, err := p.download(ctx, url)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	outPath := filepath.Join(dir, "image.jpg")
	if err := writeJPEG(outPath, img); err != nil {
		cleanup()
		return "", nil, err
	}
	return outPath, cleanup, nil
}

func (p *Preparer) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// writeJPEG downscales to maxWidth (never upscales), keeping aspect ratio,
// and encodes an optimized JPEG. Pure Go, no CGo.
func writeJPEG(path string, img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() > maxWidth {
		newHeight := bounds.Dy() * maxWidth / bounds.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}
