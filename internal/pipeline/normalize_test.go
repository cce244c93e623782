package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeRejectsOversizedFile(t *testing.T) {
	c := testConfig()
	c.AllowedMaxFileSize = 1
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	big := make([]byte, 2<<20)
	_, err := n.Upload(context.Background(), big, "big.jpg", "image/jpeg", Options{Field: "user_photo"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Field != "user_photo" {
		t.Fatalf("field: got %q", verr.Field)
	}
	if !strings.Contains(verr.Message, "too large") {
		t.Fatalf("message: got %q", verr.Message)
	}
}

func TestNormalizeRejectsDisallowedExtension(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	_, err := n.Upload(context.Background(), encodeJPEG(t, 300, 300), "photo.tiff", "image/tiff", Options{Field: "user_photo"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestNormalizeRejectsTooSmallImage(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	_, err := n.Upload(context.Background(), encodeJPEG(t, 100, 100), "small.jpg", "image/jpeg", Options{
		Field:    "user_photo",
		MinWidth: 256, MinHeight: 256,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Message, "256x256") {
		t.Fatalf("message should name the minimum, got %q", verr.Message)
	}
}

func TestNormalizeRejectsCorruptImage(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	_, err := n.Upload(context.Background(), []byte("not an image"), "x.jpg", "image/jpeg", Options{Field: "item_photos"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestNormalizeStoresBoundedJPEG(t *testing.T) {
	c := testConfig()
	c.UploadMaxPx = 200
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	rel, err := n.Upload(context.Background(), encodePNG(t, 600, 300), "wide.png", "image/png", Options{
		Field:    "user_photo",
		MinWidth: 128, MinHeight: 128,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(rel, ".jpeg") {
		t.Fatalf("stored path %q should be .jpeg", rel)
	}

	img := decodeStored(t, store, rel)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("got %dx%d, want 200x100", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestCacheKeyVariesWithFieldBounds(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	data := encodeJPEG(t, 200, 200)
	item := n.cacheKey(data, Options{Field: "item_photos", MinWidth: 128, MinHeight: 128})
	user := n.cacheKey(data, Options{Field: "user_photo", MinWidth: 256, MinHeight: 256})
	if item == user {
		t.Fatalf("key %q must not satisfy a stricter minimum", item)
	}
	again := n.cacheKey(data, Options{Field: "item_photos", MinWidth: 128, MinHeight: 128})
	if item != again {
		t.Fatalf("identical upload produced different keys %q / %q", item, again)
	}
}

func TestCacheKeyVariesWithTargetFormat(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	data := encodeJPEG(t, 300, 300)
	opts := Options{Field: "user_photo", MinWidth: 256, MinHeight: 256}

	jpg := NewNormalizer(c, imgioChain(c), store, nil).cacheKey(data, opts)
	c.UploadFormat = "webp"
	webp := NewNormalizer(c, imgioChain(c), store, nil).cacheKey(data, opts)
	if jpg == webp {
		t.Fatalf("key %q must not survive a format change", jpg)
	}
}

func TestNormalizeKeepsSmallImagesUnscaled(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	n := NewNormalizer(c, imgioChain(c), store, nil)

	rel, err := n.Upload(context.Background(), encodeJPEG(t, 300, 400), "ok.jpg", "image/jpeg", Options{
		Field:    "user_photo",
		MinWidth: 256, MinHeight: 256,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	img := decodeStored(t, store, rel)
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 400 {
		t.Fatalf("got %dx%d, want 300x400", img.Bounds().Dx(), img.Bounds().Dy())
	}
}
