package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, span := Tracer("").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("expected invalid span context from noop provider")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestInitEnabledExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Options{
		Enabled:     true,
		ServiceName: "ticketbot-test",
		Version:     "dev",
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { Init(context.Background(), Options{}) })

	_, span := Tracer("test").Start(context.Background(), "dispatch.command")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "dispatch.command") {
		t.Errorf("expected exported span in output, got %q", buf.String())
	}
}
