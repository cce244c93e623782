package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geminiResponse(img []byte, mime string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"text": "here is your try-on"},
						map[string]any{"inlineData": map[string]string{
							"mimeType": mime,
							"data":     base64.StdEncoding.EncodeToString(img),
						}},
					},
				},
			},
		},
	})
	return string(b)
}

func testGemini(baseURL string) *Gemini {
	g := NewGemini("test-key", "test-model", 5*time.Second, 100, 100, 2)
	g.BaseURL = baseURL
	return g
}

func TestGeminiTryOnReturnsImage(t *testing.T) {
	want := []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.Contains(r.URL.Path, "test-model:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body struct {
			Contents []struct {
				Parts []json.RawMessage `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 3 {
			t.Errorf("want 3 parts (user, combined, prompt)")
		}
		w.Write([]byte(geminiResponse(want, "image/jpeg")))
	}))
	defer srv.Close()

	g := testGemini(srv.URL)
	img, mime, err := g.TryOn(context.Background(), TryOnRequest{
		UserImage:     []byte("user"),
		UserMIME:      "image/jpeg",
		CombinedImage: []byte("items"),
		CombinedMIME:  "image/jpeg",
		Prompt:        "fit the dress",
	})
	if err != nil {
		t.Fatalf("tryon: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("mime: got %q", mime)
	}
	if string(img) != string(want) {
		t.Fatalf("image bytes mismatch")
	}
}

func TestGeminiRetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(geminiResponse([]byte{0x01}, "image/png")))
	}))
	defer srv.Close()

	g := testGemini(srv.URL)
	if _, _, err := g.TryOn(context.Background(), TryOnRequest{Prompt: "p"}); err != nil {
		t.Fatalf("tryon after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: got %d want 2", calls)
	}
}

func TestGeminiHardErrorDoesNotRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad request"}}`))
	}))
	defer srv.Close()

	g := testGemini(srv.URL)
	if _, _, err := g.TryOn(context.Background(), TryOnRequest{Prompt: "p"}); err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Fatalf("calls: got %d want 1", calls)
	}
}

func TestGeminiTextOnlyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "sorry, no image"}]}}]}`))
	}))
	defer srv.Close()

	g := testGemini(srv.URL)
	_, _, err := g.TryOn(context.Background(), TryOnRequest{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "no image") {
		t.Fatalf("want no-image error, got %v", err)
	}
}

func TestBuildPromptsIncludeUserWishes(t *testing.T) {
	p := BuildClothesPrompt("make it casual")
	if !strings.Contains(p, "[USER]\nmake it casual") {
		t.Fatalf("clothes prompt missing user section")
	}
	if !strings.Contains(p, "[TASK]") {
		t.Fatalf("clothes prompt missing task section")
	}
	h := BuildHairPrompt("")
	if strings.Contains(h, "[USER]") {
		t.Fatalf("empty wishes should not add a user section")
	}
	if !strings.Contains(h, "HAIRSTYLE") {
		t.Fatalf("hair prompt should describe hairstyle editing")
	}
}
