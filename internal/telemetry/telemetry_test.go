package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")
	shutdown, enabled, err := Setup(context.Background(), "property-analysis", "test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if enabled {
		t.Fatal("tracing should be disabled without an endpoint")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupExportsSpans(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	t.Setenv(EndpointEnv, ts.URL)

	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	shutdown, enabled, err := Setup(context.Background(), "property-analysis", "test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !enabled {
		t.Fatal("tracing should be enabled")
	}
	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "jobs.run")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if hits.Load() == 0 {
		t.Fatal("expected spans to be exported on shutdown")
	}
}
