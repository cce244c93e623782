package tryon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/model"
	"github.com/RostislavDaniliv/lookify/internal/pipeline"
	"github.com/RostislavDaniliv/lookify/internal/providers"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

// Kind selects which try-on flow a request runs through.
type Kind string

const (
	KindClothes Kind = "clothes"
	KindHair    Kind = "hair"
)

// Result is the outcome of one processed try-on request.
type Result struct {
	PublicID     string
	ResultPath   string
	ResultURL    string
	CombinedPath string
	Source       providers.SourceName
}

// Service runs the try-on flow: combine items, call the first provider
// that succeeds, fall back to the placeholder. The db handle may be
// nil; record keeping is then skipped.
type Service struct {
	db          *sqlx.DB
	store       *storage.Store
	composer    *pipeline.Composer
	placeholder *pipeline.PlaceholderGenerator
	clients     []providers.Client
	useAI       bool
}

func NewService(cfg *config.Config, db *sqlx.DB, store *storage.Store, composer *pipeline.Composer, placeholder *pipeline.PlaceholderGenerator, clients []providers.Client) *Service {
	return &Service{
		db:          db,
		store:       store,
		composer:    composer,
		placeholder: placeholder,
		clients:     clients,
		useAI:       cfg.UseGemini && len(clients) > 0,
	}
}

// Process takes already-normalized stored paths and produces the final
// result image. A CompositionError or pipeline.ErrPlaceholder from
// here maps directly onto the API error codes.
func (s *Service) Process(ctx context.Context, kind Kind, userRel string, itemRels []string, userPrompt string) (*Result, error) {
	publicID := uuid.NewString()
	log := telemetry.L().With().Str("tryon_id", publicID).Str("kind", string(kind)).Logger()
	log.Info().Str("user_image", userRel).Int("items", len(itemRels)).Msg("tryon_start")

	s.insertRecord(ctx, publicID, kind, userRel, itemRels, userPrompt)

	combinedRel, err := s.composer.Combine(itemRels)
	if err != nil {
		log.Error().Err(err).Msg("tryon_combine_fail")
		s.finishRecord(ctx, publicID, model.TryOnStatusFailed, "", "", "", err.Error())
		return nil, err
	}

	prompt := providers.BuildClothesPrompt(userPrompt)
	if kind == KindHair {
		prompt = providers.BuildHairPrompt(userPrompt)
	}

	resultRel, source, err := s.generate(ctx, userRel, combinedRel, prompt, userPrompt, log)
	if err != nil {
		s.finishRecord(ctx, publicID, model.TryOnStatusFailed, string(source), combinedRel, "", err.Error())
		return nil, err
	}

	s.finishRecord(ctx, publicID, model.TryOnStatusDone, string(source), combinedRel, resultRel, "")
	log.Info().Str("source", string(source)).Str("result", resultRel).Msg("tryon_done")

	return &Result{
		PublicID:     publicID,
		ResultPath:   resultRel,
		ResultURL:    s.store.URL(resultRel),
		CombinedPath: combinedRel,
		Source:       source,
	}, nil
}

// generate tries each provider in order, then the placeholder.
func (s *Service) generate(ctx context.Context, userRel, combinedRel, prompt, userPrompt string, log zerolog.Logger) (string, providers.SourceName, error) {
	if s.useAI {
		req, err := s.buildRequest(userRel, combinedRel, prompt)
		if err != nil {
			log.Warn().Err(err).Msg("tryon_read_inputs_fail")
		} else {
			for _, client := range s.clients {
				img, _, err := client.TryOn(ctx, *req)
				if err != nil {
					log.Warn().Err(err).Str("provider", string(client.Name())).Msg("tryon_provider_fail")
					continue
				}
				rel, err := s.saveAIResult(img)
				if err != nil {
					log.Error().Err(err).Str("provider", string(client.Name())).Msg("tryon_save_result_fail")
					continue
				}
				return rel, client.Name(), nil
			}
			log.Warn().Msg("tryon_all_providers_failed")
		}
	}

	rel, err := s.placeholder.Generate(userRel, userPrompt)
	if err != nil {
		return "", providers.SourcePlaceholder, err
	}
	return rel, providers.SourcePlaceholder, nil
}

func (s *Service) buildRequest(userRel, combinedRel, prompt string) (*providers.TryOnRequest, error) {
	userBytes, err := s.readStored(userRel)
	if err != nil {
		return nil, err
	}
	combinedBytes, err := s.readStored(combinedRel)
	if err != nil {
		return nil, err
	}
	return &providers.TryOnRequest{
		UserImage:     userBytes,
		UserMIME:      mimeForPath(userRel),
		CombinedImage: combinedBytes,
		CombinedMIME:  "image/jpeg",
		Prompt:        prompt,
	}, nil
}

func (s *Service) readStored(rel string) ([]byte, error) {
	abs, err := s.store.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// saveAIResult re-encodes whatever the provider returned as a stored
// JPEG so results are uniform regardless of provider.
func (s *Service) saveAIResult(img []byte) (string, error) {
	jpg, err := reencodeJPEG(img)
	if err != nil {
		return "", err
	}
	return s.store.SaveResult(jpg, "ai_result")
}

func (s *Service) insertRecord(ctx context.Context, publicID string, kind Kind, userRel string, itemRels []string, prompt string) {
	if s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tryons (public_id, kind, status, user_image, item_images, prompt) VALUES (?, ?, ?, ?, ?, ?)`,
		publicID, string(kind), model.TryOnStatusPending, userRel, strings.Join(itemRels, ","), prompt)
	if err != nil {
		telemetry.L().Error().Err(err).Str("tryon_id", publicID).Msg("tryon_insert_fail")
	}
}

func (s *Service) finishRecord(ctx context.Context, publicID, status, source, combinedRel, resultRel, errMsg string) {
	if s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tryons SET status=?, source=?, combined_image=?, result_image=?, error=?, updated_at=? WHERE public_id=?`,
		status, source, combinedRel, resultRel, truncate(errMsg, 255), time.Now(), publicID)
	if err != nil {
		telemetry.L().Error().Err(err).Str("tryon_id", publicID).Msg("tryon_update_fail")
	}
}

// Get looks a try-on record up by its public id.
func (s *Service) Get(ctx context.Context, publicID string) (*model.TryOn, error) {
	if s.db == nil {
		return nil, errors.New("record keeping disabled")
	}
	var row model.TryOn
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM tryons WHERE public_id=?`, publicID); err != nil {
		return nil, err
	}
	return &row, nil
}

func reencodeJPEG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imgio.Encode(&buf, imgio.Flatten(img, imgio.FlattenWhite), imgio.FormatJPEG, 85); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func mimeForPath(rel string) string {
	switch {
	case strings.HasSuffix(rel, ".png"):
		return "image/png"
	case strings.HasSuffix(rel, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
