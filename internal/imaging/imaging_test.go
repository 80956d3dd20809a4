package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rotisserie/eris"
)

// createTestPNG generates a solid-color PNG in memory using the standard
// library encoder, so the tests need no fixture files.
func createTestPNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err) // only in tests
	}
	return buf.Bytes()
}

func TestPrepare_SmallImagePassesThrough(t *testing.T) {
	src := createTestPNG(64, 32, color.RGBA{R: 255, A: 255})

	got, err := NewProcessor(DefaultMaxDimension).Prepare(src)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if got.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", got.MimeType)
	}
	if got.Width != 64 || got.Height != 32 {
		t.Errorf("expected 64x32, got %dx%d", got.Width, got.Height)
	}
	if got.Downscaled {
		t.Error("small image should not be downscaled")
	}
	if got.Bytes != len(src) {
		t.Errorf("expected %d bytes, got %d", len(src), got.Bytes)
	}

	decoded, err := base64.StdEncoding.DecodeString(got.Data)
	if err != nil {
		t.Fatalf("data is not base64: %v", err)
	}
	if !bytes.Equal(decoded, src) {
		t.Error("pass-through data differs from source")
	}
}

func TestPrepare_DownscalesKeepingAspect(t *testing.T) {
	src := createTestPNG(400, 200, color.RGBA{B: 255, A: 255})

	got, err := NewProcessor(100).Prepare(src)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if !got.Downscaled {
		t.Fatal("expected image to be downscaled")
	}
	if got.Width != 100 || got.Height != 50 {
		t.Errorf("expected 100x50, got %dx%d", got.Width, got.Height)
	}
}

func TestPrepare_RejectsNonImage(t *testing.T) {
	_, err := NewProcessor(DefaultMaxDimension).Prepare([]byte("<html><body>nope</body></html>"))
	if !eris.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}

	_, err = NewProcessor(DefaultMaxDimension).Prepare(nil)
	if !eris.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage for empty payload, got %v", err)
	}
}
