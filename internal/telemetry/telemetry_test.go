package telemetry

import (
	"context"
	"strings"
	"testing"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestNoopTracer(t *testing.T) {
	_, span := NoopTracer().Start(context.Background(), "test")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("noop spans should have an invalid span context")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := Options{SampleRatio: tt.ratio}.sampler().Description()
		if !strings.HasPrefix(got, "ParentBased{") || !strings.Contains(got, tt.want) {
			t.Errorf("sampler(%g) = %q, want a parent-based %s", tt.ratio, got, tt.want)
		}
	}
}
