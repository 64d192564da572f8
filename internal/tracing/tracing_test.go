package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.Enabled() {
		t.Errorf("Expected disabled provider")
	}
	_, span := p.Tracer().Start(context.Background(), "noop")
	if span.IsRecording() {
		t.Errorf("Expected no-op span")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	var nilProvider *Provider
	if nilProvider.Enabled() || nilProvider.Shutdown(context.Background()) != nil {
		t.Errorf("Expected nil provider to behave as disabled")
	}
}

func TestSetupEnabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p, err := Setup(Config{Enabled: true, Endpoint: "http://127.0.0.1:14268/api/traces", Environment: "test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !p.Enabled() {
		t.Fatalf("Expected enabled provider")
	}
	if otel.GetTracerProvider() != p.sdk {
		t.Errorf("Expected the provider to be installed globally")
	}
	_, span := p.Tracer().Start(context.Background(), "recorded")
	if !span.IsRecording() {
		t.Errorf("Expected a recording span")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
