package tryon

import (
	"errors"
	"io"
	"mime/multipart"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/RostislavDaniliv/lookify/internal/config"
	"github.com/RostislavDaniliv/lookify/internal/imgio"
	"github.com/RostislavDaniliv/lookify/internal/middleware"
	"github.com/RostislavDaniliv/lookify/internal/model"
	"github.com/RostislavDaniliv/lookify/internal/pipeline"
	"github.com/RostislavDaniliv/lookify/internal/providers"
	"github.com/RostislavDaniliv/lookify/internal/storage"
	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

const (
	maxItems     = 3
	maxPromptLen = 1000
)

type Handler struct {
	cfg  *config.Config
	svc  *Service
	norm *pipeline.Normalizer
}

func buildProviders(cfg *config.Config) []providers.Client {
	var list []providers.Client
	if cfg.GeminiKey != "" {
		list = append(list, providers.NewGemini(cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiTimeout, cfg.GeminiRPS, cfg.GeminiBurst, cfg.ProviderMaxRetries))
	}
	if cfg.OpenAIKey != "" {
		list = append(list, providers.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.GeminiTimeout, cfg.GeminiRPS, cfg.GeminiBurst, cfg.ProviderMaxRetries))
	}
	return list
}

func NewHandler(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, chain *imgio.Chain, store *storage.Store) *Handler {
	norm := pipeline.NewNormalizer(cfg, chain, store, rdb)
	composer := pipeline.NewComposer(cfg, store)
	placeholder := pipeline.NewPlaceholderGenerator(cfg, store)
	svc := NewService(cfg, db, store, composer, placeholder, buildProviders(cfg))
	return &Handler{cfg: cfg, svc: svc, norm: norm}
}

// TryOnClothes handles POST /api/v1/clothes/try-on.
func (h *Handler) TryOnClothes(c *fiber.Ctx) error {
	return h.tryOn(c, KindClothes)
}

// TryOnHair handles POST /api/v1/hair/try-on.
func (h *Handler) TryOnHair(c *fiber.Ctx) error {
	return h.tryOn(c, KindHair)
}

func (h *Handler) tryOn(c *fiber.Ctx, kind Kind) error {
	rid, _ := c.Locals(middleware.ReqIDKey).(string)
	log := telemetry.L().With().Str("req_id", rid).Str("kind", string(kind)).Logger()

	form, err := c.MultipartForm()
	if err != nil {
		return validationFailed(c, map[string]string{"form": "Expected multipart form data."})
	}

	userFiles := form.File["user_photo"]
	itemFiles := form.File["item_photos"]
	prompt := c.FormValue("prompt_text")

	fieldErrs := map[string]string{}
	if len(userFiles) == 0 {
		fieldErrs["user_photo"] = "This field is required."
	}
	if len(itemFiles) == 0 {
		fieldErrs["item_photos"] = "This field is required."
	}
	if len(itemFiles) > maxItems {
		fieldErrs["item_photos"] = "A maximum of 3 item photos is allowed."
	}
	if len(prompt) > maxPromptLen {
		fieldErrs["prompt_text"] = "Prompt must be at most 1000 characters."
	}
	if len(fieldErrs) > 0 {
		return validationFailed(c, fieldErrs)
	}

	ctx := c.Context()

	userRel, err := h.normalizeFile(c, userFiles[0], pipeline.Options{
		Field:     "user_photo",
		MinWidth:  h.cfg.MinUserPx,
		MinHeight: h.cfg.MinUserPx,
	})
	if err != nil {
		return h.uploadError(c, err)
	}

	// Items normalize concurrently, one goroutine per file.
	itemRels := make([]string, len(itemFiles))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxItems)
	for i, fh := range itemFiles {
		i, fh := i, fh
		g.Go(func() error {
			data, err := readMultipartFile(fh)
			if err != nil {
				return &pipeline.ValidationError{Field: "item_photos", Message: "Could not read uploaded file."}
			}
			rel, err := h.norm.Upload(gctx, data, fh.Filename, fh.Header.Get("Content-Type"), pipeline.Options{
				Field:     "item_photos",
				MinWidth:  h.cfg.MinItemPx,
				MinHeight: h.cfg.MinItemPx,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			itemRels[i] = rel
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return h.uploadError(c, err)
	}

	res, err := h.svc.Process(ctx, kind, userRel, itemRels, prompt)
	if err != nil {
		var comb *pipeline.CompositionError
		if errors.As(err, &comb) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"detail": "Failed to process item images. Please try again.",
				"code":   "COMBINE_ERROR",
			})
		}
		log.Error().Err(err).Msg("tryon_process_fail")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to generate any result. Please try again.",
			"code":   "PROCESS_ERROR",
		})
	}

	return c.JSON(fiber.Map{
		"id":          res.PublicID,
		"status":      model.TryOnStatusDone,
		"source":      string(res.Source),
		"result_urls": []string{res.ResultURL},
	})
}

// GetTryOn handles GET /api/v1/tryons/:id.
func (h *Handler) GetTryOn(c *fiber.Ctx) error {
	row, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Try-on not found."})
	}
	resp := fiber.Map{
		"id":     row.PublicID,
		"kind":   row.Kind,
		"status": row.Status,
		"source": row.Source,
	}
	if row.ResultImage != "" {
		resp["result_urls"] = []string{h.svc.store.URL(row.ResultImage)}
	}
	return c.JSON(resp)
}

func (h *Handler) normalizeFile(c *fiber.Ctx, fh *multipart.FileHeader, opts pipeline.Options) (string, error) {
	data, err := readMultipartFile(fh)
	if err != nil {
		return "", &pipeline.ValidationError{Field: opts.Field, Message: "Could not read uploaded file."}
	}
	return h.norm.Upload(c.Context(), data, fh.Filename, fh.Header.Get("Content-Type"), opts)
}

// uploadError maps normalization failures onto the API error shapes.
func (h *Handler) uploadError(c *fiber.Ctx, err error) error {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		return validationFailed(c, map[string]string{verr.Field: verr.Message})
	}
	telemetry.L().Error().Err(err).Msg("upload_fail")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"detail": "Internal server error during processing",
		"code":   "PROCESS_ERROR",
	})
}

func validationFailed(c *fiber.Ctx, fieldErrs map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"detail":       "Validation failed",
		"field_errors": fieldErrs,
	})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
