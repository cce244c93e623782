//go:build !libheif

package imgio

import (
	"errors"
	"image"
)

func libheifAvailable() bool { return false }

func decodeLibHeif(_ []byte) (image.Image, error) {
	return nil, errors.New("libheif support not compiled in")
}
