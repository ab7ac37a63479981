package obslog

import (
	"log/slog"
	"testing"
)

func TestLevelFromEnvDefaults(t *testing.T) {
	t.Setenv("WOLFE_LOG_LEVEL", "")
	if got := levelFromEnv(); got != slog.LevelInfo {
		t.Fatalf("levelFromEnv() = %v, want LevelInfo", got)
	}
}

func TestLevelFromEnvRecognizesLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for env, want := range cases {
		t.Setenv("WOLFE_LOG_LEVEL", env)
		if got := levelFromEnv(); got != want {
			t.Fatalf("levelFromEnv() with WOLFE_LOG_LEVEL=%q = %v, want %v", env, got, want)
		}
	}
}

func TestInitReturnsUsableLogger(t *testing.T) {
	t.Setenv("WOLFE_JSON_LOG", "true")
	logger := Init("wolfe-test")
	if logger == nil {
		t.Fatal("Init returned nil logger")
	}
	if slog.Default() != logger {
		t.Fatal("Init should set the returned logger as the global default")
	}
}
