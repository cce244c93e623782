package imgio

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
)

// OrientationTag reads the EXIF orientation (1..8) from the raw upload
// bytes. Returns 1 whenever the tag is absent or unreadable; metadata
// problems never fail an upload.
func OrientationTag(data []byte, f Format) int {
	switch f {
	case FormatJPEG:
		return orientationFromExif(data)
	case FormatHEIF, FormatAVIF:
		payload, err := goheif.ExtractExif(bytes.NewReader(data))
		if err != nil || len(payload) == 0 {
			return 1
		}
		if o := orientationFromExif(payload); o != 1 {
			return o
		}
		// Some files prefix the TIFF header with a 4-byte offset.
		if len(payload) > 4 {
			return orientationFromExif(payload[4:])
		}
		return 1
	default:
		return 1
	}
}

func orientationFromExif(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// ApplyOrientation bakes an EXIF orientation into the pixels so every
// downstream consumer sees an upright image with orientation 1.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
