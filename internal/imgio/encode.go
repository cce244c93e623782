package imgio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

// Encode writes img in the target format. Quality applies to lossy
// targets and is clamped to 1..100; PNG ignores it.
func Encode(w io.Writer, img image.Image, target Format, quality int) error {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	switch target {
	case FormatJPEG, FormatHEIF:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported encode target %q", target)
	}
}
