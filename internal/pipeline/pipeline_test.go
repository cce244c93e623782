package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		UploadFormat:       "jpeg",
		UploadQuality:      90,
		UploadMaxPx:        3000,
		MinUserPx:          256,
		MinItemPx:          128,
		CollageMaxPx:       800,
		CollageSpacing:     20,
		PlaceholderMaxPx:   3000,
		ResultQuality:      85,
		CaptionFont:        "/nonexistent/font.ttf",
		ConvertTimeout:     5 * time.Second,
		NormCacheTTL:       time.Hour,
		AllowedMaxFileSize: 8,
		AllowedFileExt:     []string{".jpg", ".jpeg", ".png", ".webp", ".avif", ".heic", ".heif"},
	}
}

func imgioChain(c *config.Config) *imgio.Chain {
	return imgio.NewChain(imgio.Capabilities{}, c.ConvertTimeout)
}

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func saveUpload(t *testing.T, s *storage.Store, data []byte, ext string) string {
	t.Helper()
	rel, err := s.SaveUpload(data, ext)
	if err != nil {
		t.Fatalf("save upload: %v", err)
	}
	return rel
}

func decodeStored(t *testing.T, s *storage.Store, rel string) image.Image {
	t.Helper()
	abs, err := s.Resolve(rel)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode stored %s: %v", rel, err)
	}
	return img
}
