package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/pipeline"
	"github.com/your-org/attend/internal/queue"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/pkg/dto"
)

type RecognizeHandler struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer

	// Pipe runs the synchronous recognition path. Nil until the vision
	// models are loaded.
	Pipe *pipeline.Pipeline
}

func NewRecognizeHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *RecognizeHandler {
	return &RecognizeHandler{db: db, minio: minio, producer: producer}
}

// Recognize handles the synchronous kiosk path: the capture is classified in
// the request and the kiosk shows the result immediately.
func (h *RecognizeHandler) Recognize(c *gin.Context) {
	kiosk, imageData, ok := h.readCapture(c)
	if !ok {
		return
	}

	if h.Pipe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recognition models not loaded"})
		return
	}

	// Kiosk-local time, so the calendar day and the debounce window follow
	// the kiosk, not the server.
	ts := time.Now().In(kiosk.TimeLocation())
	captureID := uuid.New()
	captureKey := storage.CaptureKey(kiosk.Name, ts, captureID.String())
	if err := h.minio.PutObject(c.Request.Context(), captureKey, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store capture failed"})
		return
	}

	outcome, err := h.Pipe.Recognize(c.Request.Context(), imageData, kiosk.Name, ts, captureKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	outcome.CaptureID = captureID

	// The record is already committed; a lost broadcast only affects
	// live dashboards.
	if err := h.producer.PublishOutcome(c.Request.Context(), kiosk.Name, outcome); err != nil {
		slog.Error("publish outcome", "error", err, "capture", captureID)
	}

	c.JSON(http.StatusOK, outcomeResponse(outcome))
}

// SubmitCapture handles the asynchronous path: store the image, enqueue a
// task, reply immediately. The outcome arrives over the WebSocket.
func (h *RecognizeHandler) SubmitCapture(c *gin.Context) {
	kiosk, imageData, ok := h.readCapture(c)
	if !ok {
		return
	}

	ts := time.Now().In(kiosk.TimeLocation())
	captureID := uuid.New()
	captureKey := storage.CaptureKey(kiosk.Name, ts, captureID.String())

	if err := h.minio.PutObject(c.Request.Context(), captureKey, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store capture failed"})
		return
	}

	task := models.CaptureTask{
		CaptureID:  captureID,
		KioskName:  kiosk.Name,
		Timestamp:  ts,
		CaptureRef: captureKey,
	}
	if err := h.producer.PublishCapture(c.Request.Context(), kiosk.Name, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue capture failed"})
		return
	}

	c.JSON(http.StatusAccepted, dto.CaptureAccepted{
		CaptureID: captureID,
		Status:    "queued",
	})
}

func (h *RecognizeHandler) readCapture(c *gin.Context) (*models.Kiosk, []byte, bool) {
	name := c.PostForm("kiosk")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kiosk field required"})
		return nil, nil, false
	}

	k, err := h.db.GetKioskByName(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	if k == nil || !k.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "unknown or inactive kiosk"})
		return nil, nil, false
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return nil, nil, false
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return nil, nil, false
	}

	return k, imageData, true
}

func outcomeResponse(o *models.CaptureOutcome) dto.RecognizeResponse {
	return dto.RecognizeResponse{
		Matched:        o.Matched,
		EmployeeID:     o.EmployeeID,
		EmployeeName:   o.EmployeeName,
		Confidence:     o.Confidence,
		EventKind:      string(o.EventKind),
		TotalHours:     o.TotalHours,
		RejectedReason: o.RejectedReason,
	}
}
