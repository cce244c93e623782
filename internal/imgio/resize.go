package imgio

import (
	"image"

	"github.com/disintegration/imaging"
)

// Downscale shrinks img so its longest edge is at most maxPx, keeping
// aspect ratio. Images already within the bound pass through untouched;
// upscaling never happens.
func Downscale(img image.Image, maxPx int) image.Image {
	if maxPx <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPx && h <= maxPx {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxPx, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxPx, imaging.Lanczos)
}
