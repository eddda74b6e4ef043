package handlers

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/recognition"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/internal/vision"
	"github.com/your-org/attend/pkg/dto"
)

type EmployeeHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore

	recCfg     config.RecognitionConfig
	qualityCfg config.QualityConfig

	// EncodeFn extracts an enrollment encoding from image bytes.
	// Set after the vision models are loaded.
	EncodeFn func(imageData []byte) (*vision.Result, error)
}

func NewEmployeeHandler(db *storage.PostgresStore, minio *storage.MinIOStore, recCfg config.RecognitionConfig, qualityCfg config.QualityConfig) *EmployeeHandler {
	return &EmployeeHandler{db: db, minio: minio, recCfg: recCfg, qualityCfg: qualityCfg}
}

func (h *EmployeeHandler) Create(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emp, err := h.db.CreateEmployee(c.Request.Context(), req.Name, req.Department, req.Designation)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, employeeResponse(emp, 0))
}

func (h *EmployeeHandler) List(c *gin.Context) {
	var status *models.EmployeeStatus
	if s := c.Query("status"); s != "" {
		st := models.EmployeeStatus(s)
		status = &st
	}

	employees, err := h.db.ListEmployees(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		count, _ := h.db.CountFaceEncodings(c.Request.Context(), e.ID)
		resp = append(resp, employeeResponse(&e, count))
	}

	c.JSON(http.StatusOK, gin.H{"employees": resp, "total": len(resp)})
}

func (h *EmployeeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	emp, err := h.db.GetEmployee(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if emp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
		return
	}

	count, _ := h.db.CountFaceEncodings(c.Request.Context(), id)
	c.JSON(http.StatusOK, employeeResponse(emp, count))
}

// Deactivate removes an employee from matching without deleting history.
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	if err := h.db.SetEmployeeStatus(c.Request.Context(), id, models.EmployeeInactive); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// AddFace accepts a multipart image upload, runs the quality gate and
// enrollment encoding, and stores both the encoding and the source image.
func (h *EmployeeHandler) AddFace(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	emp, err := h.db.GetEmployee(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if emp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
		return
	}

	count, err := h.db.CountFaceEncodings(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count >= h.recCfg.MaxEncodingsPerEmployee {
		c.JSON(http.StatusConflict, gin.H{"error": "encoding limit reached for employee"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unreadable image"})
		return
	}

	quality := recognition.CheckImage(img, h.qualityCfg)
	if !quality.OK {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": quality.Reason})
		return
	}

	if h.EncodeFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recognition models not loaded"})
		return
	}

	result, err := h.EncodeFn(imageData)
	if err != nil {
		switch {
		case errors.Is(err, vision.ErrNoFace), errors.Is(err, vision.ErrMultipleFaces):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if result.FaceRatio < h.qualityCfg.MinFaceRatio {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "face too small relative to image"})
		return
	}

	encodingID := uuid.New()
	sourceKey := storage.EnrollmentKey(employeeID.String(), encodingID.String())
	if err := h.minio.PutObject(c.Request.Context(), sourceKey, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	fe, err := h.db.AddFaceEncoding(c.Request.Context(), employeeID, result.Encoding, quality.Score, sourceKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.FaceEncodingResponse{
		ID:         fe.ID,
		EmployeeID: fe.EmployeeID,
		Quality:    fe.Quality,
		SourceKey:  fe.SourceKey,
		CreatedAt:  fe.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *EmployeeHandler) ListFaces(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	faces, err := h.db.ListFaceEncodings(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceEncodingResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, dto.FaceEncodingResponse{
			ID:         f.ID,
			EmployeeID: f.EmployeeID,
			Quality:    f.Quality,
			SourceKey:  f.SourceKey,
			CreatedAt:  f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

func (h *EmployeeHandler) DeleteFace(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}
	faceID, err := uuid.Parse(c.Param("faceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid face id"})
		return
	}

	if err := h.db.DeleteFaceEncoding(c.Request.Context(), employeeID, faceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func employeeResponse(e *models.Employee, faceCount int) dto.EmployeeResponse {
	return dto.EmployeeResponse{
		ID:          e.ID,
		Name:        e.Name,
		Department:  e.Department,
		Designation: e.Designation,
		Status:      string(e.Status),
		FaceCount:   faceCount,
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
