package imgio

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	xwebp "golang.org/x/image/webp"

	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// Capabilities lists the optional decode rungs available in this
// deployment. Probed once at startup and injected, never read from
// global state by the chain itself.
type Capabilities struct {
	LibHeif    bool
	Converters []Converter
}

// Probe checks which optional decoders this process can use.
func Probe() Capabilities {
	caps := Capabilities{
		LibHeif:    libheifAvailable(),
		Converters: probeConverters(),
	}
	log := telemetry.L()
	log.Info().
		Bool("libheif", caps.LibHeif).
		Int("converters", len(caps.Converters)).
		Msg("decoder_capabilities")
	return caps
}

// DecodeError is the terminal error after every rung of the chain has
// failed. Its message is safe to surface to clients.
type DecodeError struct {
	Format Format
}

func (e *DecodeError) Error() string {
	if e.Format == FormatHEIF {
		return "HEIC file processing failed. Please convert to JPEG or PNG."
	}
	return "file is not a valid image or is corrupted"
}

// Chain decodes raw upload bytes by trying a fixed sequence of
// decoders, falling through to the next on any failure. Only full
// exhaustion is an error; individual rung failures are logged and
// swallowed.
type Chain struct {
	caps           Capabilities
	convertTimeout time.Duration
}

func NewChain(caps Capabilities, convertTimeout time.Duration) *Chain {
	if convertTimeout <= 0 {
		convertTimeout = 30 * time.Second
	}
	return &Chain{caps: caps, convertTimeout: convertTimeout}
}

func (c *Chain) Decode(ctx context.Context, data []byte, f Format) (image.Image, error) {
	type rung struct {
		name string
		skip bool
		fn   func(context.Context, []byte) (image.Image, error)
	}

	// The external converter rung is gated to the HEIF family: process
	// spawning is the expensive, security-sensitive path and nothing
	// else benefits from it.
	rungs := []rung{
		{name: "std", fn: func(_ context.Context, b []byte) (image.Image, error) { return decodeStd(b, f) }},
		{name: "goheif", fn: func(_ context.Context, b []byte) (image.Image, error) { return decodeHEIF(b) }},
		{name: "goheif_safe", fn: func(_ context.Context, b []byte) (image.Image, error) { return decodeHEIFSafe(b) }},
		{name: "libheif", skip: !c.caps.LibHeif, fn: func(_ context.Context, b []byte) (image.Image, error) { return decodeLibHeif(b) }},
		{name: "convert", skip: !f.HEIFFamily() || len(c.caps.Converters) == 0, fn: c.decodeWithConverters},
	}

	log := telemetry.L().With().Str("format", string(f)).Logger()
	for _, r := range rungs {
		if r.skip {
			continue
		}
		img, err := r.fn(ctx, data)
		if err == nil && img != nil {
			return img, nil
		}
		log.Debug().Err(err).Str("rung", r.name).Msg("decode_rung_fail")
	}

	log.Warn().Int("bytes", len(data)).Msg("decode_exhausted")
	return nil, &DecodeError{Format: f}
}

// decodeStd covers JPEG, PNG, GIF, BMP, WebP and baseline AVIF. The
// webp and avif decoders register themselves on import, so the generic
// image.Decode path also handles them for unknown formats.
func decodeStd(data []byte, f Format) (image.Image, error) {
	switch f {
	case FormatAVIF:
		return avif.Decode(bytes.NewReader(data))
	case FormatWebP:
		return xwebp.Decode(bytes.NewReader(data))
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
}
