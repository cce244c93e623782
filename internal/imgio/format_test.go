package imgio

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

func newNRGBA(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

// ftypBox builds the minimal ISO-BMFF prefix the sniffer looks at.
func ftypBox(brand string) []byte {
	box := []byte{0x00, 0x00, 0x00, 0x18}
	box = append(box, []byte("ftyp")...)
	box = append(box, []byte(brand)...)
	box = append(box, []byte{0x00, 0x00, 0x00, 0x00}...)
	box = append(box, []byte("mif1")...)
	return box
}

func TestSniffMagicBytes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", encodePNG(t, 2, 2), FormatPNG},
		{"jpeg", encodeJPEG(t, 2, 2), FormatJPEG},
		{"gif", []byte("GIF89a........"), FormatGIF},
		{"bmp", []byte("BM............"), FormatBMP},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...), FormatWebP},
		{"heic", ftypBox("heic"), FormatHEIF},
		{"heix", ftypBox("heix"), FormatHEIF},
		{"mif1", ftypBox("mif1"), FormatHEIF},
		{"avif", ftypBox("avif"), FormatAVIF},
		{"avis", ftypBox("avis"), FormatAVIF},
	}
	for _, tc := range cases {
		if got := Sniff(tc.data, "", ""); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestSniffMagicWinsOverDeclaredType(t *testing.T) {
	data := encodePNG(t, 2, 2)
	if got := Sniff(data, "image/jpeg", "photo.jpg"); got != FormatPNG {
		t.Fatalf("magic bytes should win, got %q", got)
	}
}

func TestSniffContentTypeFallback(t *testing.T) {
	junk := []byte("not an image at all, definitely")
	cases := map[string]Format{
		"image/jpeg": FormatJPEG,
		"image/jpg":  FormatJPEG,
		"image/mpo":  FormatJPEG,
		"image/png":  FormatPNG,
		"image/webp": FormatWebP,
		"image/avif": FormatAVIF,
		"image/heic": FormatHEIF,
		"image/heif": FormatHEIF,
	}
	for ct, want := range cases {
		if got := Sniff(junk, ct, ""); got != want {
			t.Fatalf("content type %s: got %q want %q", ct, got, want)
		}
	}
}

func TestSniffExtensionFallback(t *testing.T) {
	junk := []byte("0123456789abcdef0123456789abcdef")
	if got := Sniff(junk, "application/octet-stream", "IMG_0001.HEIC"); got != FormatHEIF {
		t.Fatalf("extension fallback: got %q", got)
	}
	if got := Sniff(junk, "", "unknown.bin"); got != FormatUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestFormatExt(t *testing.T) {
	// HEIF inputs are always re-encoded, so their storage extension is
	// the re-encode target, never .heic.
	if got := FormatHEIF.Ext(); got != "jpeg" {
		t.Fatalf("heif ext: got %q", got)
	}
	if got := FormatPNG.Ext(); got != "png" {
		t.Fatalf("png ext: got %q", got)
	}
}
