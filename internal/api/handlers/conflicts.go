package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/pkg/dto"
)

type ConflictHandler struct {
	db *storage.PostgresStore
}

func NewConflictHandler(db *storage.PostgresStore) *ConflictHandler {
	return &ConflictHandler{db: db}
}

// List returns conflicts awaiting operator resolution.
func (h *ConflictHandler) List(c *gin.Context) {
	conflicts, err := h.db.ListPendingConflicts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ConflictResponse, 0, len(conflicts))
	for _, cf := range conflicts {
		resp = append(resp, dto.ConflictResponse{
			ID:             cf.ID,
			EmployeeID:     cf.EmployeeID,
			Date:           cf.Date.Format("2006-01-02"),
			PrimaryKiosk:   cf.PrimaryKiosk,
			ConflictKiosks: cf.ConflictKiosks,
			Status:         cf.Status,
			CreatedAt:      cf.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"conflicts": resp, "total": len(resp)})
}
