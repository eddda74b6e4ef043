package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(_ context.Context) error { return p.err }

func readyzRequest(t *testing.T, h *SystemHandler) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	return w, body
}

func TestReadyzAllHealthy(t *testing.T) {
	h := NewSystemHandler(fakePinger{}, fakePinger{},
		func() error { return nil },
		func() bool { return true })

	w, body := readyzRequest(t, h)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %v; want ready", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["recognition"] != "ok" {
		t.Errorf("recognition check = %v; want ok", checks["recognition"])
	}
}

func TestReadyzModelsMissingIsDegraded(t *testing.T) {
	h := NewSystemHandler(fakePinger{}, fakePinger{},
		func() error { return nil },
		func() bool { return false })

	w, body := readyzRequest(t, h)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, missing models must not fail readiness", w.Code)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v; want degraded", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["recognition"] != "models not loaded" {
		t.Errorf("recognition check = %v; want models not loaded", checks["recognition"])
	}
}

func TestReadyzInfraFailureIsNotReady(t *testing.T) {
	h := NewSystemHandler(fakePinger{err: errors.New("db down")}, fakePinger{},
		func() error { return nil },
		func() bool { return true })

	w, body := readyzRequest(t, h)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want 503", w.Code)
	}
	if body["status"] != "not ready" {
		t.Errorf("status = %v; want not ready", body["status"])
	}
	checks := body["checks"].(map[string]any)
	if checks["postgres"] != "db down" {
		t.Errorf("postgres check = %v; want db down", checks["postgres"])
	}
}
