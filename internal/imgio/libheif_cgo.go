//go:build libheif

package imgio

import (
	"image"

	"github.com/strukturag/libheif/go/heif"
)

func libheifAvailable() bool { return true }

func decodeLibHeif(data []byte) (image.Image, error) {
	ctx, err := heif.NewContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.ReadFromMemory(data); err != nil {
		return nil, err
	}
	handle, err := ctx.GetPrimaryImageHandle()
	if err != nil {
		return nil, err
	}
	img, err := handle.DecodeImage(heif.ColorspaceRGB, heif.ChromaInterleavedRGBA, nil)
	if err != nil {
		return nil, err
	}
	return img.GetImage()
}
