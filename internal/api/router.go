package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/attend/internal/api/handlers"
	"github.com/your-org/attend/internal/api/ws"
	"github.com/your-org/attend/internal/auth"
	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/pipeline"
	"github.com/your-org/attend/internal/queue"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/internal/vision"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub

	Recognition config.RecognitionConfig
	Quality     config.QualityConfig

	// EncodeFn produces an enrollment encoding from image bytes.
	EncodeFn func(imageData []byte) (*vision.Result, error)
	// Pipe is the synchronous recognition pipeline.
	Pipe *pipeline.Pipeline
	// ModelsReady reports whether the recognition models loaded; readiness
	// reports degraded when they did not.
	ModelsReady func() bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer.Ping, cfg.ModelsReady)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Employees & Faces
	empH := handlers.NewEmployeeHandler(cfg.DB, cfg.MinIO, cfg.Recognition, cfg.Quality)
	empH.EncodeFn = cfg.EncodeFn
	v1.POST("/employees", empH.Create)
	v1.GET("/employees", empH.List)
	v1.GET("/employees/:id", empH.Get)
	v1.POST("/employees/:id/deactivate", empH.Deactivate)
	v1.POST("/employees/:id/faces", empH.AddFace)
	v1.GET("/employees/:id/faces", empH.ListFaces)
	v1.DELETE("/employees/:id/faces/:faceId", empH.DeleteFace)

	// Recognition
	recH := handlers.NewRecognizeHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	recH.Pipe = cfg.Pipe
	v1.POST("/recognize", recH.Recognize)
	v1.POST("/captures", recH.SubmitCapture)

	// Attendance
	attH := handlers.NewAttendanceHandler(cfg.DB)
	v1.GET("/attendance", attH.List)
	v1.GET("/attendance/stats", attH.Stats)
	v1.GET("/attendance/export", attH.Export)

	// Kiosks
	kioskH := handlers.NewKioskHandler(cfg.DB)
	v1.POST("/kiosks", kioskH.Create)
	v1.GET("/kiosks", kioskH.List)
	v1.GET("/kiosks/:id", kioskH.Get)
	v1.DELETE("/kiosks/:id", kioskH.Delete)

	// Conflicts
	conflictH := handlers.NewConflictHandler(cfg.DB)
	v1.GET("/conflicts", conflictH.List)

	return r
}
