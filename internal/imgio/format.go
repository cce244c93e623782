package imgio

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format is the authoritative container family of an upload, derived
// from byte content first and client-declared metadata second.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
	FormatAVIF    Format = "avif"
	FormatHEIF    Format = "heif"
)

func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatHEIF:
		return "image/heic"
	}
	return "application/octet-stream"
}

func (f Format) Ext() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatHEIF:
		// HEIC never persists as-is, uploads store it re-encoded
		return "jpeg"
	case FormatUnknown:
		return "bin"
	}
	return string(f)
}

// HEIFFamily reports whether the format belongs to the ISO-BMFF image
// family that may need the HEIF fallback rungs of the decode chain.
func (f Format) HEIFFamily() bool { return f == FormatHEIF || f == FormatAVIF }

var (
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicGIF  = []byte("GIF8")
	magicBMP  = []byte("BM")
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
	magicFTYP = []byte("ftyp")
)

var heicBrands = [][]byte{
	[]byte("heic"),
	[]byte("heix"),
	[]byte("hevc"),
	[]byte("hevx"),
	[]byte("mif1"),
	[]byte("msf1"),
}

var avifBrands = [][]byte{
	[]byte("avif"),
	[]byte("avis"),
}

// Sniff determines the format of an upload. Byte content wins; the
// client-declared content type and filename extension are untrusted
// fallbacks for containers the magic check cannot classify. It never
// fails: an inconclusive input yields FormatUnknown, which still
// permits a generic decode attempt.
func Sniff(data []byte, declaredType, filename string) Format {
	if f := sniffMagic(data); f != FormatUnknown {
		return f
	}
	if f := fromContentType(declaredType); f != FormatUnknown {
		return f
	}
	return fromExtension(filename)
}

func sniffMagic(data []byte) Format {
	switch {
	case len(data) >= 8 && bytes.HasPrefix(data, magicPNG):
		return FormatPNG
	case len(data) >= 3 && bytes.HasPrefix(data, magicJPEG):
		return FormatJPEG
	case len(data) >= 4 && bytes.HasPrefix(data, magicGIF):
		return FormatGIF
	case len(data) >= 12 && bytes.HasPrefix(data, magicRIFF) && bytes.Equal(data[8:12], magicWEBP):
		return FormatWebP
	case len(data) >= 12 && bytes.Equal(data[4:8], magicFTYP):
		brand := data[8:12]
		for _, b := range avifBrands {
			if bytes.Equal(brand, b) {
				return FormatAVIF
			}
		}
		for _, b := range heicBrands {
			if bytes.Equal(brand, b) {
				return FormatHEIF
			}
		}
		return FormatUnknown
	case len(data) >= 2 && bytes.HasPrefix(data, magicBMP):
		return FormatBMP
	}
	return FormatUnknown
}

func fromContentType(ct string) Format {
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "image/jpeg", "image/jpg", "image/mpo":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	case "image/bmp":
		return FormatBMP
	case "image/webp":
		return FormatWebP
	case "image/avif":
		return FormatAVIF
	case "image/heic", "image/heif":
		return FormatHEIF
	}
	return FormatUnknown
}

func fromExtension(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".gif":
		return FormatGIF
	case ".bmp":
		return FormatBMP
	case ".webp":
		return FormatWebP
	case ".avif":
		return FormatAVIF
	case ".heic", ".heif":
		return FormatHEIF
	}
	return FormatUnknown
}
