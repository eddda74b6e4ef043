package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/attend/internal/api"
	"github.com/your-org/attend/internal/api/ws"
	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/observability"
	"github.com/your-org/attend/internal/pipeline"
	"github.com/your-org/attend/internal/queue"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/internal/vision"
	"github.com/your-org/attend/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting attendance API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Start outcome consumer to broadcast attendance events via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create outcome consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeOutcomes(ctx, "api-outcomes", func(ctx context.Context, msg jetstream.Msg) error {
		var outcome models.CaptureOutcome
		if err := json.Unmarshal(msg.Data(), &outcome); err != nil {
			return err
		}

		evtType := "attendance_recorded"
		if outcome.RejectedReason != "" {
			evtType = "capture_rejected"
		}

		hub.BroadcastEvent(&dto.WSEvent{
			Type:      evtType,
			KioskName: outcome.KioskName,
			Data: dto.RecognizeResponse{
				Matched:        outcome.Matched,
				EmployeeID:     outcome.EmployeeID,
				EmployeeName:   outcome.EmployeeName,
				Confidence:     outcome.Confidence,
				EventKind:      string(outcome.EventKind),
				TotalHours:     outcome.TotalHours,
				RejectedReason: outcome.RejectedReason,
			},
		})

		return nil
	})
	if err != nil {
		slog.Warn("start outcome consumer", "error", err)
	}

	// Initialize ONNX Runtime for the synchronous recognition path and
	// enrollment. If it fails, enrollment and /v1/recognize degrade but
	// the async capture path keeps working through the workers.
	var encodeFn func([]byte) (*vision.Result, error)
	var pipe *pipeline.Pipeline

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — enrollment and sync recognize unavailable", "error", err)
	} else {
		encoder, err := vision.NewEncoder(cfg.Recognition)
		if err != nil {
			slog.Warn("load recognition models failed — enrollment and sync recognize unavailable", "error", err)
		} else {
			encodeFn = encoder.EncodeEnrollment
			pipe = pipeline.New(cfg, encoder, db, minioStore, producer)
			defer encoder.Close()
			defer ort.DestroyEnvironment()
			slog.Info("recognition models ready for API")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:      cfg.Server.APIKey,
		DB:          db,
		MinIO:       minioStore,
		Producer:    producer,
		Hub:         hub,
		Recognition: cfg.Recognition,
		Quality:     cfg.Quality,
		EncodeFn:    encodeFn,
		Pipe:        pipe,
		ModelsReady: func() bool { return pipe != nil },
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
