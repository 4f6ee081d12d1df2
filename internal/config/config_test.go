package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxTurns != 200 || cfg.Encounters != 1 || cfg.Parallel != 4 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("log defaults = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.OTelEnabled {
		t.Error("telemetry should be opt-in")
	}
	if cfg.OTelSample != 1 {
		t.Errorf("OTelSample = %g, want 1", cfg.OTelSample)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TURNKEEPER_SEED", "42")
	t.Setenv("TURNKEEPER_MAX_TURNS", "50")
	t.Setenv("TURNKEEPER_LOG_FORMAT", "json")
	t.Setenv("TURNKEEPER_OTEL_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Seed != 42 || cfg.MaxTurns != 50 || cfg.LogFormat != "json" || !cfg.OTelEnabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TURNKEEPER_MAX_TURNS", "0"},
		{"TURNKEEPER_PARALLEL", "-1"},
		{"TURNKEEPER_LOG_FORMAT", "xml"},
		{"TURNKEEPER_SEED", "not-a-number"},
		{"TURNKEEPER_OTEL_SAMPLE_RATIO", "1.5"},
		{"TURNKEEPER_OTEL_SAMPLE_RATIO", "0"},
		{"TURNKEEPER_OTEL_SAMPLE_RATIO", "-0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}
