package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// Normalizer turns a raw upload into a stored, upright, bounded,
// re-encoded image. Every HEIC input leaves this stage as the
// configured target format; HEIF bytes are never persisted.
type Normalizer struct {
	chain      *imgio.Chain
	store      *storage.Store
	rdb        *redis.Client
	target     imgio.Format
	quality    int
	maxPx      int
	maxBytes   int64
	allowedExt []string
	cacheTTL   time.Duration
}

// Options carries the per-field validation bounds.
type Options struct {
	Field     string
	MinWidth  int
	MinHeight int
}

func NewNormalizer(cfg *config.Config, chain *imgio.Chain, store *storage.Store, rdb *redis.Client) *Normalizer {
	target := imgio.Format(strings.ToLower(cfg.UploadFormat))
	if target != imgio.FormatWebP && target != imgio.FormatPNG {
		target = imgio.FormatJPEG
	}
	return &Normalizer{
		chain:      chain,
		store:      store,
		rdb:        rdb,
		target:     target,
		quality:    cfg.UploadQuality,
		maxPx:      cfg.UploadMaxPx,
		maxBytes:   int64(cfg.AllowedMaxFileSize) << 20,
		allowedExt: cfg.AllowedFileExt,
		cacheTTL:   cfg.NormCacheTTL,
	}
}

// Upload validates, normalizes and stores one uploaded image, returning
// the relative media path. Identical raw bytes reuse the previously
// stored file through the cache.
func (n *Normalizer) Upload(ctx context.Context, data []byte, filename, contentType string, opts Options) (string, error) {
	if int64(len(data)) > n.maxBytes {
		return "", &ValidationError{
			Field:   opts.Field,
			Message: fmt.Sprintf("File too large. Maximum size is %dMB.", n.maxBytes>>20),
		}
	}
	if !n.extAllowed(filename) {
		return "", &ValidationError{
			Field:   opts.Field,
			Message: "Unsupported file extension.",
		}
	}

	key := n.cacheKey(data, opts)
	if rel, ok := n.cacheGet(ctx, key); ok {
		return rel, nil
	}

	format := imgio.Sniff(data, contentType, filename)
	img, err := n.chain.Decode(ctx, data, format)
	if err != nil {
		return "", &ValidationError{Field: opts.Field, Message: err.Error()}
	}

	b := img.Bounds()
	if b.Dx() < opts.MinWidth || b.Dy() < opts.MinHeight {
		return "", &ValidationError{
			Field:   opts.Field,
			Message: fmt.Sprintf("Image is too small. Minimum size is %dx%d pixels.", opts.MinWidth, opts.MinHeight),
		}
	}

	img = imgio.ApplyOrientation(img, imgio.OrientationTag(data, format))
	img = imgio.Downscale(img, n.maxPx)
	flat := imgio.Flatten(img, imgio.PolicyFor(n.target))

	var buf bytes.Buffer
	if err := imgio.Encode(&buf, flat, n.target, n.quality); err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	rel, err := n.store.SaveUpload(buf.Bytes(), n.target.Ext())
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	n.cacheSet(ctx, key, rel)

	telemetry.L().Info().
		Str("field", opts.Field).
		Str("format", string(format)).
		Int("in_bytes", len(data)).
		Int("out_bytes", buf.Len()).
		Str("path", rel).
		Msg("upload_normalized")
	return rel, nil
}

func (n *Normalizer) extAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range n.allowedExt {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// cacheKey covers both the content and every parameter that shapes the
// stored output, so a hit written under one field's bounds or an older
// target format never satisfies a stricter or differently-configured
// upload.
func (n *Normalizer) cacheKey(data []byte, opts Options) string {
	return fmt.Sprintf("norm:%s:%s:q%d:px%d:%dx%d",
		hashBytes(data), n.target, n.quality, n.maxPx, opts.MinWidth, opts.MinHeight)
}

// cacheGet only trusts a hit whose stored file still exists.
func (n *Normalizer) cacheGet(ctx context.Context, key string) (string, bool) {
	if n.rdb == nil {
		return "", false
	}
	rel, err := n.rdb.Get(ctx, key).Result()
	if err != nil || rel == "" {
		return "", false
	}
	abs, err := n.store.Resolve(rel)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(abs); err != nil {
		return "", false
	}
	return rel, true
}

func (n *Normalizer) cacheSet(ctx context.Context, key, rel string) {
	if n.rdb == nil {
		return
	}
	if err := n.rdb.Set(ctx, key, rel, n.cacheTTL).Err(); err != nil {
		telemetry.L().Debug().Err(err).Msg("norm_cache_set_fail")
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
