package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv, AppPort, BaseURL string
	DBDSN                    string
	RedisAddr                string
	RedisDB                  int
	CORSOrigins              []string

	MediaRoot    string
	MediaBaseURL string

	UseGemini              bool
	GeminiKey, GeminiModel string
	OpenAIKey, OpenAIModel string
	GeminiTimeout          time.Duration
	GeminiRPS              int
	GeminiBurst            int
	ProviderMaxRetries     int

	UploadFormat     string
	UploadQuality    int
	UploadMaxPx      int
	MinUserPx        int
	MinItemPx        int
	CollageMaxPx     int
	CollageSpacing   int
	PlaceholderMaxPx int
	ResultQuality    int
	CaptionFont      string

	ConvertTimeout time.Duration
	NormCacheTTL   time.Duration

	MaxBodyLimit       int
	AllowedMaxFileSize int
	AllowedFileExt     []string
}

func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppEnv:             get("APP_ENV", "dev"),
		AppPort:            get("APP_PORT", "8080"),
		BaseURL:            get("APP_BASE_URL", "http://localhost:8080"),
		DBDSN:              must("DB_DSN"),
		RedisAddr:          get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisDB:            atoi(get("REDIS_DB", "0")),
		CORSOrigins:        split(get("CORS_ORIGINS", "http://localhost:5173")),
		MediaRoot:          get("MEDIA_ROOT", "./media"),
		MediaBaseURL:       get("MEDIA_BASE_URL", get("APP_BASE_URL", "http://localhost:8080")+"/media"),
		UseGemini:          parseBool(get("USE_GEMINI", "false")),
		GeminiKey:          get("GEMINI_API_KEY", ""),
		GeminiModel:        get("GEMINI_MODEL", "gemini-2.5-flash-image"),
		OpenAIKey:          get("OPENAI_API_KEY", ""),
		OpenAIModel:        get("OPENAI_MODEL", "gpt-image-1"),
		GeminiTimeout:      mustDuration(get("GEMINI_TIMEOUT", "120s")),
		GeminiRPS:          atoi(get("GEMINI_RPS", "2")),
		GeminiBurst:        atoi(get("GEMINI_BURST", "2")),
		ProviderMaxRetries: atoi(get("PROVIDER_MAX_RETRIES", "3")),
		UploadFormat:       get("UPLOAD_FORMAT", "jpeg"),
		UploadQuality:      atoi(get("UPLOAD_QUALITY", "90")),
		UploadMaxPx:        atoi(get("UPLOAD_MAX_PX", "3000")),
		MinUserPx:          atoi(get("MIN_USER_PX", "256")),
		MinItemPx:          atoi(get("MIN_ITEM_PX", "128")),
		CollageMaxPx:       atoi(get("COLLAGE_MAX_PX", "800")),
		CollageSpacing:     atoi(get("COLLAGE_SPACING", "20")),
		PlaceholderMaxPx:   atoi(get("PLACEHOLDER_MAX_PX", "3000")),
		ResultQuality:      atoi(get("RESULT_QUALITY", "85")),
		CaptionFont:        get("CAPTION_FONT", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),
		ConvertTimeout:     mustDuration(get("CONVERT_TIMEOUT", "30s")),
		NormCacheTTL:       mustDuration(get("NORM_CACHE_TTL", "24h")),
		MaxBodyLimit:       GetEnvInt("MAX_BODY_LIMIT", 40),
		AllowedMaxFileSize: GetEnvInt("ALLOWED_MAX_FILE_SIZE", 8),
		AllowedFileExt:     GetEnvList("ALLOWED_FILE_EXT", []string{".jpg", ".jpeg", ".png", ".webp", ".avif", ".heic", ".heif"}),
	}
	return c
}

func GetEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func GetEnvList(k string, d []string) []string {
	if v := os.Getenv(k); v != "" {
		return strings.Split(v, ",")
	}
	return d
}

func get(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}
func atoi(s string) int                   { i, _ := strconv.Atoi(s); return i }
func parseBool(s string) bool             { b, _ := strconv.ParseBool(s); return b }
func mustDuration(s string) time.Duration { d, _ := time.ParseDuration(s); return d }
func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func GetEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
