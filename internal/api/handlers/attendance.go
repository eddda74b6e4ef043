package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attend/internal/export"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/pkg/dto"
)

type AttendanceHandler struct {
	db *storage.PostgresStore
}

func NewAttendanceHandler(db *storage.PostgresStore) *AttendanceHandler {
	return &AttendanceHandler{db: db}
}

func (h *AttendanceHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	records, total, err := h.db.ListAttendance(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.AttendanceResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, attendanceResponse(r))
	}

	c.JSON(http.StatusOK, dto.AttendanceListResponse{Records: resp, Total: total})
}

func (h *AttendanceHandler) Stats(c *gin.Context) {
	var employeeID *uuid.UUID
	if s := c.Query("employee_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee_id"})
			return
		}
		employeeID = &id
	}

	stats, err := h.db.Stats(c.Request.Context(), employeeID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.AttendanceStatsResponse{
		Today:     stats.Today,
		ThisWeek:  stats.ThisWeek,
		ThisMonth: stats.ThisMonth,
	})
}

// Export streams the filtered records as CSV or JSON.
func (h *AttendanceHandler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	exporter, err := export.New(export.Format(c.Query("format")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Exports ignore paging and drain the whole filtered set page by page.
	ctx := c.Request.Context()
	records, err := export.CollectAll(func(limit, offset int) ([]models.AttendanceRecord, int, error) {
		f := filter
		f.Limit = limit
		f.Offset = offset
		return h.db.ListAttendance(ctx, f)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", exporter.ContentType())
	c.Header("Content-Disposition", "attachment; filename=attendance."+string(export.Format(c.DefaultQuery("format", "csv"))))
	if err := exporter.Export(c.Writer, records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *AttendanceHandler) parseFilter(c *gin.Context) (storage.AttendanceFilter, bool) {
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return storage.AttendanceFilter{}, false
	}

	filter := storage.AttendanceFilter{
		KioskName: q.Kiosk,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}

	if q.EmployeeID != "" {
		id, err := uuid.Parse(q.EmployeeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee_id"})
			return storage.AttendanceFilter{}, false
		}
		filter.EmployeeID = &id
	}
	if q.From != "" {
		t, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return storage.AttendanceFilter{}, false
		}
		filter.From = &t
	}
	if q.To != "" {
		t, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return storage.AttendanceFilter{}, false
		}
		filter.To = &t
	}

	return filter, true
}

func attendanceResponse(r models.AttendanceRecord) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		Date:        r.Date.Format("2006-01-02"),
		CheckInTime: r.CheckInTime.Format("2006-01-02T15:04:05Z07:00"),
		KioskName:   r.KioskName,
		Confidence:  float64(r.Confidence),
		TotalHours:  r.TotalHours,
		Open:        r.Open(),
		CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if r.CheckOutTime != nil {
		s := r.CheckOutTime.Format("2006-01-02T15:04:05Z07:00")
		resp.CheckOutTime = &s
	}
	return resp
}
