package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/ghuser/todolist/pkg/config"
)

func TestSetupSentry_NoDSNIsNoop(t *testing.T) {
	if err := SetupSentry(&config.Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTracesSampleRate(t *testing.T) {
	tests := []struct {
		env  string
		want float64
	}{
		{config.EnvProduction, 0.2},
		{config.EnvDevelopment, 1.0},
		{config.EnvTesting, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := tracesSampleRate(tt.env); got != tt.want {
				t.Fatalf("tracesSampleRate(%q) = %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}

func TestScrubEvent(t *testing.T) {
	t.Run("drops session cookie and form body", func(t *testing.T) {
		event := &sentry.Event{Request: &sentry.Request{
			URL:     "http://localhost:8080/todos",
			Method:  "POST",
			Cookies: "todolist=MTcx...",
			Data:    "name=Buy+milk",
			Headers: map[string]string{"Cookie": "todolist=MTcx...", "User-Agent": "curl"},
		}}

		got := scrubEvent(event, nil)

		if got.Request.Cookies != "" || got.Request.Data != "" {
			t.Fatalf("expected cookies and data removed, got %+v", got.Request)
		}
		if _, ok := got.Request.Headers["Cookie"]; ok {
			t.Fatal("expected Cookie header removed")
		}
		if got.Request.Headers["User-Agent"] != "curl" || got.Request.URL == "" {
			t.Fatalf("expected other request fields kept, got %+v", got.Request)
		}
	})

	t.Run("event without request", func(t *testing.T) {
		event := &sentry.Event{Message: "worker panic"}
		if got := scrubEvent(event, nil); got != event {
			t.Fatal("expected event returned unchanged")
		}
	})
}
