package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// PlaceholderGenerator produces the fallback result when no AI provider
// is configured or every provider failed: the user photo with the
// request text overlaid.
type PlaceholderGenerator struct {
	store    *storage.Store
	maxPx    int
	quality  int
	fontPath string
}

func NewPlaceholderGenerator(cfg *config.Config, store *storage.Store) *PlaceholderGenerator {
	return &PlaceholderGenerator{
		store:    store,
		maxPx:    cfg.PlaceholderMaxPx,
		quality:  cfg.ResultQuality,
		fontPath: cfg.CaptionFont,
	}
}

// Generate renders the placeholder from the stored user photo and
// returns the relative path of the saved image.
func (p *PlaceholderGenerator) Generate(userRel, prompt string) (string, error) {
	log := telemetry.L()

	abs, err := p.store.Resolve(userRel)
	if err != nil {
		log.Error().Err(err).Str("path", userRel).Msg("placeholder_resolve_fail")
		return "", ErrPlaceholder
	}
	img, err := imaging.Open(abs, imaging.AutoOrientation(true))
	if err != nil {
		log.Error().Err(err).Str("path", userRel).Msg("placeholder_open_fail")
		return "", ErrPlaceholder
	}

	canvas := imaging.Clone(imgio.Downscale(img, p.maxPx))

	if prompt != "" {
		caption := fmt.Sprintf("Your wishes: %s", prompt)
		drawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(color.White),
			Face: p.face(),
			Dot:  fixed.P(50, 50),
		}
		drawer.DrawString(caption)
	}

	var buf bytes.Buffer
	if err := imgio.Encode(&buf, canvas, imgio.FormatJPEG, p.quality); err != nil {
		log.Error().Err(err).Msg("placeholder_encode_fail")
		return "", ErrPlaceholder
	}
	rel, err := p.store.SaveResult(buf.Bytes(), "placeholder")
	if err != nil {
		log.Error().Err(err).Msg("placeholder_save_fail")
		return "", ErrPlaceholder
	}

	log.Info().Str("path", rel).Msg("placeholder_generated")
	return rel, nil
}

// face loads the configured TTF at caption size, falling back to the
// built-in bitmap face when the font file is missing or unreadable.
func (p *PlaceholderGenerator) face() font.Face {
	data, err := os.ReadFile(p.fontPath)
	if err != nil {
		return basicfont.Face7x13
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		telemetry.L().Debug().Err(err).Str("font", p.fontPath).Msg("caption_font_parse_fail")
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 40, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
