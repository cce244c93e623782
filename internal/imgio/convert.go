package imgio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// Converter is an external tool that can rewrite a HEIF file to PNG.
// Both supported tools take positional input and output paths.
type Converter struct {
	Name string
	Path string
}

var converterNames = []string{"heif-convert", "magick"}

func probeConverters() []Converter {
	var out []Converter
	for _, name := range converterNames {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		out = append(out, Converter{Name: name, Path: path})
	}
	return out
}

// decodeWithConverters is the last rung: write the bytes to a scratch
// dir, run each available converter until one produces a decodable
// PNG. The scratch dir is removed whether or not conversion succeeds.
func (c *Chain) decodeWithConverters(ctx context.Context, data []byte) (image.Image, error) {
	dir, err := os.MkdirTemp("", "lookify-convert-")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.heic")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	log := telemetry.L()
	var lastErr error
	for _, conv := range c.caps.Converters {
		out := filepath.Join(dir, "output-"+conv.Name+".png")
		img, err := c.runConverter(ctx, conv, in, out)
		if err == nil {
			return img, nil
		}
		lastErr = err
		log.Debug().Err(err).Str("converter", conv.Name).Msg("converter_fail")
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no converters available")
	}
	return nil, lastErr
}

func (c *Chain) runConverter(ctx context.Context, conv Converter, in, out string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.convertTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, conv.Path, in, out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", conv.Name, err, stderr.String())
	}
	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("%s produced no output: %w", conv.Name, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s output unreadable: %w", conv.Name, err)
	}
	return img, nil
}
