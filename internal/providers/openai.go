package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/RostislavDaniliv/lookify/internal/telemetry"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI uses the images/edits endpoint: both the person photo and the
// combined item image go in as reference images and the prompt asks
// for the fitted result.
type OpenAI struct {
	Key, Model string
	BaseURL    string
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
}

func NewOpenAI(key, model string, timeout time.Duration, rps, burst, maxRetries int) *OpenAI {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 2
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OpenAI{
		Key:        key,
		Model:      model,
		BaseURL:    openAIBaseURL,
		Client:     &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		MaxRetries: maxRetries,
	}
}

func (c *OpenAI) Name() SourceName { return SourceOpenAI }

func (c *OpenAI) TryOn(ctx context.Context, in TryOnRequest) ([]byte, string, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	body, contentType, err := c.buildForm(in)
	if err != nil {
		return nil, "", err
	}

	log := telemetry.L().With().Str("provider", string(c.Name())).Logger()

	var lastErr error
	t0 := time.Now()
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			d := time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
			time.Sleep(d)
		}

		req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/images/edits", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+c.Key)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var out struct {
				Data []struct {
					B64JSON string `json:"b64_json"`
				} `json:"data"`
			}
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, "", err
			}
			if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
				return nil, "", errors.New("openai: response contains no image")
			}
			img, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
			if err != nil {
				return nil, "", err
			}
			log.Info().
				Int("latency_ms", int(time.Since(t0)/time.Millisecond)).
				Int("image_bytes", len(img)).
				Msg("openai_ok")
			return img, "image/png", nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warn().Int("status", resp.StatusCode).Msg("openai_429_retry")
			lastErr = errors.New("openai http 429")
			continue
		}

		log.Error().Str("status", resp.Status).RawJSON("body", raw).Msg("openai_http_error")
		return nil, "", errors.New("openai http " + resp.Status)
	}
	return nil, "", lastErr
}

func (c *OpenAI) buildForm(in TryOnRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("model", c.Model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("prompt", in.Prompt); err != nil {
		return nil, "", err
	}
	for i, img := range [][]byte{in.UserImage, in.CombinedImage} {
		part, err := w.CreateFormFile("image[]", []string{"person.jpeg", "items.jpeg"}[i])
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
