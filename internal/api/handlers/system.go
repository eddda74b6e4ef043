package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves liveness and readiness. Readiness distinguishes
// hard infrastructure failures (503) from a missing recognition model,
// which only degrades enrollment and the synchronous recognize path.
type SystemHandler struct {
	db          Pinger
	minio       Pinger
	natsPing    func() error
	modelsReady func() bool
}

func NewSystemHandler(db, minio Pinger, natsPing func() error, modelsReady func() bool) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, natsPing: natsPing, modelsReady: modelsReady}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.minio.Ping(ctx); err != nil {
		checks["minio"] = err.Error()
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	if err := h.natsPing(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
	}

	degraded := false
	if h.modelsReady == nil || !h.modelsReady() {
		// Async captures still flow through the workers, so this is not
		// a hard failure.
		checks["recognition"] = "models not loaded"
		degraded = true
	} else {
		checks["recognition"] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	switch {
	case !healthy:
		status = http.StatusServiceUnavailable
		state = "not ready"
	case degraded:
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
