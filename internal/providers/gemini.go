package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Gemini struct {
	Key, Model string
	BaseURL    string
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
}

func NewGemini(key, model string, timeout time.Duration, rps, burst, maxRetries int) *Gemini {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 2
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Gemini{
		Key:        key,
		Model:      model,
		BaseURL:    geminiBaseURL,
		Client:     &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		MaxRetries: maxRetries,
	}
}

func (c *Gemini) Name() SourceName { return SourceGemini }

func (c *Gemini) TryOn(ctx context.Context, in TryOnRequest) ([]byte, string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	body := map[string]any{
		"contents": []any{
			map[string]any{
				"role": "user",
				"parts": []any{
					map[string]any{"inlineData": map[string]string{
						"mimeType": in.UserMIME,
						"data":     base64.StdEncoding.EncodeToString(in.UserImage),
					}},
					map[string]any{"inlineData": map[string]string{
						"mimeType": in.CombinedMIME,
						"data":     base64.StdEncoding.EncodeToString(in.CombinedImage),
					}},
					map[string]string{"text": in.Prompt},
				},
			},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}

	log := telemetry.L().With().Str("provider", string(c.Name())).Int("body_len", len(b)).Logger()
	log.Debug().Msg("gemini_request")

	url := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", c.Key)

	var lastErr error
	t0 := time.Now()
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			d := time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
			time.Sleep(d)
		}

		resp, err := c.Client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		log.Debug().Int("status_code", resp.StatusCode).Int("body_len", len(raw)).Msg("gemini_response")

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			img, mime, err := parseGeminiImage(raw)
			if err != nil {
				log.Error().Err(err).Msg("gemini_no_image")
				return nil, "", err
			}
			log.Info().
				Int("latency_ms", int(time.Since(t0)/time.Millisecond)).
				Int("image_bytes", len(img)).
				Msg("gemini_ok")
			return img, mime, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warn().Int("status", resp.StatusCode).Msg("gemini_429_retry")
			lastErr = errors.New("gemini http 429")
			continue
		}

		log.Error().Str("status", resp.Status).RawJSON("body", raw).Msg("gemini_http_error")
		return nil, "", errors.New("gemini http " + resp.Status)
	}
	return nil, "", lastErr
}

func parseGeminiImage(raw []byte) ([]byte, string, error) {
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback *struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "", err
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, "", errors.New("gemini blocked: " + out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return nil, "", errors.New("gemini: empty candidates")
	}
	for _, part := range out.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, "", fmt.Errorf("decode gemini image: %w", err)
		}
		return img, part.InlineData.MimeType, nil
	}
	return nil, "", errors.New("gemini: response contains no image part")
}
