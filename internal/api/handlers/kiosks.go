package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attend/internal/attendance"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/pkg/dto"
)

type KioskHandler struct {
	db *storage.PostgresStore
}

func NewKioskHandler(db *storage.PostgresStore) *KioskHandler {
	return &KioskHandler{db: db}
}

func (h *KioskHandler) Create(c *gin.Context) {
	var req dto.CreateKioskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if existing, err := h.db.GetKioskByName(c.Request.Context(), req.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "kiosk name already registered"})
		return
	}

	k, err := h.db.CreateKiosk(c.Request.Context(), req.Name, req.Location, req.Timezone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, kioskResponse(k, 0, nil))
}

func (h *KioskHandler) List(c *gin.Context) {
	kiosks, err := h.db.ListKiosks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.KioskResponse, 0, len(kiosks))
	for _, k := range kiosks {
		today := attendance.DayOf(time.Now().In(k.TimeLocation()))
		sessions, last, _ := h.db.KioskActivity(c.Request.Context(), k.Name, today)
		resp = append(resp, kioskResponse(&k, sessions, last))
	}

	c.JSON(http.StatusOK, gin.H{"kiosks": resp, "total": len(resp)})
}

func (h *KioskHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kiosk id"})
		return
	}

	k, err := h.db.GetKiosk(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if k == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "kiosk not found"})
		return
	}

	sessions, last, _ := h.db.KioskActivity(c.Request.Context(), k.Name, attendance.DayOf(time.Now().In(k.TimeLocation())))
	c.JSON(http.StatusOK, kioskResponse(k, sessions, last))
}

func (h *KioskHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kiosk id"})
		return
	}

	if err := h.db.DeleteKiosk(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func kioskResponse(k *models.Kiosk, sessionsToday int, lastActivity *time.Time) dto.KioskResponse {
	resp := dto.KioskResponse{
		ID:            k.ID,
		Name:          k.Name,
		Location:      k.Location,
		Timezone:      k.Timezone,
		Active:        k.Active,
		SessionsToday: sessionsToday,
		CreatedAt:     k.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if lastActivity != nil {
		s := lastActivity.Format("2006-01-02T15:04:05Z07:00")
		resp.LastActivity = &s
	}
	return resp
}
