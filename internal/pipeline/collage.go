package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// Composer lays stored item images out on a white grid and saves the
// result as a single JPEG. A single item passes through as-is, two form
// a 2x1 row, three a 2x2 grid with an empty cell.
type Composer struct {
	store   *storage.Store
	maxPx   int
	spacing int
	quality int
}

func NewComposer(cfg *config.Config, store *storage.Store) *Composer {
	return &Composer{
		store:   store,
		maxPx:   cfg.CollageMaxPx,
		spacing: cfg.CollageSpacing,
		quality: cfg.ResultQuality,
	}
}

// Combine builds the collage from stored relative paths and returns the
// relative path of the saved combined image.
func (c *Composer) Combine(rels []string) (string, error) {
	if len(rels) == 0 {
		return "", &CompositionError{Err: errors.New("no item images provided")}
	}
	imgs := make([]image.Image, 0, len(rels))
	for _, rel := range rels {
		abs, err := c.store.Resolve(rel)
		if err != nil {
			return "", &CompositionError{Err: err}
		}
		img, err := imaging.Open(abs, imaging.AutoOrientation(true))
		if err != nil {
			return "", &CompositionError{Err: err}
		}
		imgs = append(imgs, imgio.Downscale(img, c.maxPx))
	}

	var canvas image.Image
	if len(imgs) == 1 {
		canvas = imgs[0]
	} else {
		canvas = c.layout(imgs)
	}

	var buf bytes.Buffer
	if err := imgio.Encode(&buf, imgio.Flatten(canvas, imgio.FlattenWhite), imgio.FormatJPEG, c.quality); err != nil {
		return "", &CompositionError{Err: err}
	}
	rel, err := c.store.SaveResult(buf.Bytes(), "combined_items")
	if err != nil {
		return "", &CompositionError{Err: err}
	}

	telemetry.L().Info().
		Int("items", len(imgs)).
		Str("path", rel).
		Msg("items_combined")
	return rel, nil
}

func (c *Composer) layout(imgs []image.Image) *image.NRGBA {
	cols := 2
	rows := (len(imgs) + 1) / 2

	var cellW, cellH int
	for _, img := range imgs {
		b := img.Bounds()
		if b.Dx() > cellW {
			cellW = b.Dx()
		}
		if b.Dy() > cellH {
			cellH = b.Dy()
		}
	}

	w := cols*cellW + (cols-1)*c.spacing
	h := rows*cellH + (rows-1)*c.spacing
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, img := range imgs {
		col, row := i%cols, i/cols
		b := img.Bounds()
		// Center each image within its cell.
		x := col*(cellW+c.spacing) + (cellW-b.Dx())/2
		y := row*(cellH+c.spacing) + (cellH-b.Dy())/2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
	}
	return canvas
}
