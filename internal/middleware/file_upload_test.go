package middleware

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestIsValidMagicMatchesExtension(t *testing.T) {
	data := pngBytes(t)
	if !isValidMagic(".png", "image/png", data, "a.png") {
		t.Fatal("png bytes with .png extension should pass")
	}
	if isValidMagic(".jpg", "image/jpeg", data, "a.jpg") {
		t.Fatal("png bytes with .jpg extension should fail")
	}
}

func TestIsValidMagicUnsniffableHEICPasses(t *testing.T) {
	// HEIC bodies often defeat the magic check; the extension fallback
	// classifies them and the decode chain gets the final say.
	if !isValidMagic(".heic", "", []byte("unclassifiable bytes here ok"), "a.heic") {
		t.Fatal("declared heic should pass through to the decode chain")
	}
}

func TestIsValidMagicHEIFFamilyCrossover(t *testing.T) {
	// ftyp box with an avif brand but a .heic extension.
	box := []byte{0x00, 0x00, 0x00, 0x18}
	box = append(box, []byte("ftypavif\x00\x00\x00\x00mif1")...)
	if !isValidMagic(".heic", "image/heic", box, "a.heic") {
		t.Fatal("avif-branded heic should pass the family check")
	}
	if isValidMagic(".png", "image/png", box, "a.png") {
		t.Fatal("avif bytes with .png extension should fail")
	}
}
