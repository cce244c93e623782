package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestPlaceholderGenerate(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	gen := NewPlaceholderGenerator(c, store)

	userRel := saveUpload(t, store, encodeJPEG(t, 320, 240), "jpeg")
	out, err := gen.Generate(userRel, "red summer dress")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "placeholder_") {
		t.Fatalf("path %q lacks placeholder_ prefix", out)
	}

	img := decodeStored(t, store, out)
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Fatalf("got %dx%d, want source dimensions", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPlaceholderWithoutPrompt(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	gen := NewPlaceholderGenerator(c, store)

	userRel := saveUpload(t, store, encodeJPEG(t, 300, 300), "jpeg")
	if _, err := gen.Generate(userRel, ""); err != nil {
		t.Fatalf("generate without prompt: %v", err)
	}
}

func TestPlaceholderDownscalesOversizedSource(t *testing.T) {
	c := testConfig()
	c.PlaceholderMaxPx = 150
	store := testStore(t)
	gen := NewPlaceholderGenerator(c, store)

	userRel := saveUpload(t, store, encodeJPEG(t, 600, 300), "jpeg")
	out, err := gen.Generate(userRel, "x")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	img := decodeStored(t, store, out)
	if img.Bounds().Dx() != 150 || img.Bounds().Dy() != 75 {
		t.Fatalf("got %dx%d, want 150x75", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPlaceholderMissingSource(t *testing.T) {
	c := testConfig()
	store := testStore(t)
	gen := NewPlaceholderGenerator(c, store)

	_, err := gen.Generate("uploads/2026/9/missing.jpeg", "x")
	if !errors.Is(err, ErrPlaceholder) {
		t.Fatalf("want ErrPlaceholder, got %v", err)
	}
}
