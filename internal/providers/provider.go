package providers

import (
	"context"
)

type SourceName string

const (
	SourceGemini      SourceName = "GEMINI"
	SourceOpenAI      SourceName = "OPENAI"
	SourcePlaceholder SourceName = "PLACEHOLDER"
)

// TryOnRequest carries everything a provider needs to generate a
// try-on image: the normalized user photo, the combined item collage,
// and the rendered instruction prompt.
type TryOnRequest struct {
	UserImage     []byte
	UserMIME      string
	CombinedImage []byte
	CombinedMIME  string
	Prompt        string
}

// Client generates a try-on image. TryOn returns the raw image bytes
// and their MIME type; the caller owns persistence.
type Client interface {
	Name() SourceName
	TryOn(ctx context.Context, req TryOnRequest) ([]byte, string, error)
}
