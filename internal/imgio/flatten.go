package imgio

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// AlphaPolicy decides what happens to transparency before encoding.
type AlphaPolicy int

const (
	// FlattenWhite composites the image over an opaque white
	// background. Required for JPEG, which has no alpha channel.
	FlattenWhite AlphaPolicy = iota
	// PreserveAlpha keeps the alpha channel as-is.
	PreserveAlpha
)

// PolicyFor returns the alpha policy an encode target demands.
func PolicyFor(target Format) AlphaPolicy {
	switch target {
	case FormatPNG, FormatWebP:
		return PreserveAlpha
	default:
		return FlattenWhite
	}
}

// Flatten applies the alpha policy and returns an NRGBA image ready
// for encoding.
func Flatten(img image.Image, policy AlphaPolicy) *image.NRGBA {
	if policy == PreserveAlpha {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	flat := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
	return flat
}
