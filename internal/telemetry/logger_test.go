package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLChainsSafelyBeforeInit(t *testing.T) {
	// the zero-value logger discards events, so callers may chain
	// level methods off L() without calling Init first
	L().Warn().Str("k", "v").Msg("noop")
	L().Info().Msg("noop")
	L().Error().Msg("noop")
	L().Debug().Msg("noop")
}

func TestInitAppliesLevel(t *testing.T) {
	l := Init(Config{Level: "warn", JSON: true, File: filepath.Join(t.TempDir(), "app.log")})
	if l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("Init level = %v, want warn", l.GetLevel())
	}
	if L().GetLevel() != zerolog.WarnLevel {
		t.Fatalf("L() level = %v, want warn", L().GetLevel())
	}
}
