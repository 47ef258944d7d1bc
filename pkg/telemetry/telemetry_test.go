package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/todolist/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		ServiceName:    "todolist-test",
		ServiceVersion: "test",
		Environment:    config.EnvTesting,
	}
}

func TestSetup_InstallsTraceContextPropagator(t *testing.T) {
	shutdown, handler, err := Setup(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer shutdown(context.Background()) //nolint:errcheck

	if handler == nil {
		t.Fatal("expected non-nil metrics handler")
	}

	fields := otel.GetTextMapPropagator().Fields()
	want := propagation.TraceContext{}.Fields()[0]
	found := false
	for _, f := range fields {
		if f == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q among propagator fields %v; outbox messages would lose the trace", want, fields)
	}
}

func TestSetup_MetricsEndpointExportsCommandCounter(t *testing.T) {
	ctx := context.Background()
	shutdown, handler, err := Setup(ctx, baseConfig())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer shutdown(ctx) //nolint:errcheck

	metrics, err := NewCommandMetrics(otel.Meter("github.com/ghuser/todolist"))
	if err != nil {
		t.Fatalf("NewCommandMetrics: %v", err)
	}
	metrics.Command(ctx, "add", OutcomeOK)
	metrics.Items(ctx, 1)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("expected text/plain content-type, got %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"todo_commands_total", `command="add"`, `outcome="ok"`, "todo_items"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in /metrics output", want)
		}
	}
}

func TestSetup_ShutdownIsClean(t *testing.T) {
	shutdown, _, err := Setup(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
