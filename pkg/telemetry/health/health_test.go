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

func TestCheckLiveness(t *testing.T) {
	c := New(0)
	if got := c.CheckLiveness(context.Background()).Status; got != "ok" {
		t.Errorf("Status = %q, want ok", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   "ready",
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"providers": func(context.Context) error { return nil },
				"journal":   func(context.Context) error { return nil },
			},
			want: "ready",
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"providers": func(context.Context) error { return errors.New("down") },
				"journal":   func(context.Context) error { return nil },
			},
			want: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %q, want %q", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != "unhealthy" {
		t.Errorf("slow check Status = %q, want unhealthy", result.Status)
	}
	if result.Message != ErrCheckTimeout.Error() {
		t.Errorf("Message = %q, want %q", result.Message, ErrCheckTimeout.Error())
	}
}

func TestCheckReadiness_Draining(t *testing.T) {
	c := New(0)
	c.RegisterCheck("providers", func(context.Context) error { return nil })
	c.SetDraining(true)

	status := c.CheckReadiness(context.Background())
	if status.Status != "draining" {
		t.Errorf("Status = %q, want draining", status.Status)
	}
	if status.Ready() {
		t.Error("Ready() = true while draining")
	}
}

func TestProvidersCheck(t *testing.T) {
	tests := []struct {
		healthy, total int
		wantErr        bool
	}{
		{0, 0, true},
		{0, 2, true},
		{1, 2, false},
		{2, 2, false},
	}

	for _, tt := range tests {
		check := ProvidersCheck(func() (int, int) { return tt.healthy, tt.total })
		err := check(context.Background())
		if (err != nil) != tt.wantErr {
			t.Errorf("ProvidersCheck(%d of %d) error = %v, wantErr %v", tt.healthy, tt.total, err, tt.wantErr)
		}
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		healthy  bool
		wantCode int
	}{
		{"ready", true, http.StatusOK},
		{"degraded", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			c.RegisterCheck("providers", func(context.Context) error {
				if tt.healthy {
					return nil
				}
				return errors.New("no healthy provider")
			})

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Status != tt.name {
				t.Errorf("body status = %q, want %q", body.Status, tt.name)
			}
		})
	}
}

func TestLivenessHandler_Methods(t *testing.T) {
	c := New(0)
	tests := []struct {
		method   string
		wantCode int
		wantBody bool
	}{
		{http.MethodGet, http.StatusOK, true},
		{http.MethodHead, http.StatusOK, false},
		{http.MethodPost, http.StatusMethodNotAllowed, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.LivenessHandler()(rec, httptest.NewRequest(tt.method, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if (rec.Body.Len() > 0) != tt.wantBody {
				t.Errorf("body length = %d, wantBody %v", rec.Body.Len(), tt.wantBody)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2026-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("info = %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
}
