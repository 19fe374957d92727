package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func healthy(context.Context) error { return nil }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]Checker
		wantCode   int
		wantStatus Status
	}{
		{
			name:       "no checkers",
			checkers:   nil,
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name:       "healthy",
			checkers:   map[string]Checker{"storage": NewSimpleChecker("storage", healthy)},
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name: "degraded keeps 200",
			checkers: map[string]Checker{
				"storage": NewSimpleChecker("storage", healthy),
				"kafka":   NewStaticChecker("kafka", StatusDegraded, "not configured"),
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: map[string]Checker{
				"storage": NewSimpleChecker("storage", func(context.Context) error { return errors.New("down") }),
				"kafka":   NewStaticChecker("kafka", StatusDegraded, "not configured"),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler("v1.0.0")
			for name, checker := range tc.checkers {
				handler.RegisterChecker(name, checker)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tc.wantCode {
				t.Fatalf("status code = %d, want %d", w.Code, tc.wantCode)
			}
			var response Response
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if response.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", response.Status, tc.wantStatus)
			}
			if response.Version != "v1.0.0" {
				t.Fatalf("version = %q, want v1.0.0", response.Version)
			}
			if len(response.Checks) != len(tc.checkers) {
				t.Fatalf("checks = %d, want %d", len(response.Checks), len(tc.checkers))
			}
		})
	}
}

func TestHealthHandler_ChecksRunConcurrently(t *testing.T) {
	handler := NewHandler("dev")
	slow := func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}
	handler.RegisterChecker("a", NewSimpleChecker("a", slow))
	handler.RegisterChecker("b", NewSimpleChecker("b", slow))
	handler.RegisterChecker("c", NewSimpleChecker("c", slow))

	start := time.Now()
	status, checks := handler.RunChecks(context.Background())
	if elapsed := time.Since(start); elapsed >= 140*time.Millisecond {
		t.Fatalf("checks took %v, expected them to run in parallel", elapsed)
	}
	if status != StatusHealthy || len(checks) != 3 {
		t.Fatalf("unexpected result: %s %+v", status, checks)
	}
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.timeout = 20 * time.Millisecond
	handler.RegisterChecker("stuck", NewSimpleChecker("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	status, checks := handler.RunChecks(context.Background())
	if status != StatusUnhealthy {
		t.Fatalf("status = %s, want unhealthy", status)
	}
	if checks["stuck"].Message != context.DeadlineExceeded.Error() {
		t.Fatalf("message = %q", checks["stuck"].Message)
	}
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", w.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		checker  Checker
		wantCode int
		wantBody string
	}{
		{name: "ready", checker: NewSimpleChecker("storage", healthy), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "degraded is ready", checker: NewStaticChecker("kafka", StatusDegraded, ""), wantCode: http.StatusOK, wantBody: "ready"},
		{
			name:     "not ready",
			checker:  NewSimpleChecker("storage", func(context.Context) error { return errors.New("not ready") }),
			wantCode: http.StatusServiceUnavailable,
			wantBody: "not ready",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler("v1.0.0")
			handler.RegisterChecker("component", tc.checker)

			w := httptest.NewRecorder()
			handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tc.wantCode {
				t.Fatalf("status code = %d, want %d", w.Code, tc.wantCode)
			}
			if w.Body.String() != tc.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestSimpleChecker_Error(t *testing.T) {
	check := NewSimpleChecker("storage", func(context.Context) error {
		return errors.New("test error")
	}).Check(context.Background())

	if check.Status != StatusUnhealthy {
		t.Fatalf("status = %s, want unhealthy", check.Status)
	}
	if check.Message != "test error" || check.Name != "storage" {
		t.Fatalf("unexpected check: %+v", check)
	}
}

func TestNames(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("redis", NewSimpleChecker("redis", healthy))
	handler.RegisterChecker("kafka", NewStaticChecker("kafka", StatusHealthy, ""))
	handler.RegisterChecker("redis", NewSimpleChecker("redis", healthy))

	names := handler.Names()
	if len(names) != 2 || names[0] != "kafka" || names[1] != "redis" {
		t.Fatalf("names = %v", names)
	}
}
