package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/attend/internal/attendance"
	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/observability"
	"github.com/your-org/attend/internal/storage"
)

// The syncer reconciles what the online path cannot: it flags employees
// whose day spans several kiosks as location conflicts and expires raw
// captures past the retention window. It never closes sessions itself.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting attendance syncer",
		"interval", cfg.Sync.Interval.String(),
		"retention", cfg.Sync.Retention.String(),
	)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Health endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("syncer health listening", "addr", ":8083")
		if err := http.ListenAndServe(":8083", mux); err != nil {
			slog.Error("health server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Sync.Interval)
		defer ticker.Stop()

		runSync(ctx, db, minioStore, cfg.Sync.Retention)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSync(ctx, db, minioStore, cfg.Sync.Retention)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down syncer...")
	cancel()
	slog.Info("syncer stopped")
}

func runSync(ctx context.Context, db *storage.PostgresStore, minioStore *storage.MinIOStore, retention time.Duration) {
	scanConflicts(ctx, db)
	expireCaptures(ctx, minioStore, retention)
}

// scanConflicts records a pending conflict for every employee whose records
// for today span more than one kiosk. The open kiosk, when there is one,
// becomes the primary; resolution is left to an operator.
func scanConflicts(ctx context.Context, db *storage.PostgresStore) {
	today := attendance.DayOf(time.Now())

	spans, err := db.MultiKioskEmployees(ctx, today)
	if err != nil {
		slog.Error("scan multi-kiosk employees", "error", err)
		return
	}

	for employeeID, kiosks := range spans {
		records, err := db.DayRecords(ctx, employeeID, today)
		if err != nil {
			slog.Error("read day records", "error", err, "employee", employeeID)
			continue
		}

		primary := kiosks[0]
		for _, rec := range records {
			if rec.Open() {
				primary = rec.KioskName
				break
			}
		}

		var others []string
		for _, k := range kiosks {
			if k != primary {
				others = append(others, k)
			}
		}
		if len(others) == 0 {
			continue
		}

		c := &models.ConflictLog{
			EmployeeID:     employeeID,
			Date:           today,
			PrimaryKiosk:   primary,
			ConflictKiosks: others,
		}
		if err := db.CreateConflict(ctx, c); err != nil {
			slog.Error("record conflict", "error", err, "employee", employeeID)
			continue
		}
		slog.Info("flagged location conflict",
			"employee", employeeID,
			"primary", primary,
			"kiosks", others,
		)
	}
}

func expireCaptures(ctx context.Context, minioStore *storage.MinIOStore, retention time.Duration) {
	keys, err := minioStore.ExpiredCaptureKeys(ctx, retention, time.Now())
	if err != nil {
		slog.Error("list expired captures", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := minioStore.DeleteObjects(ctx, keys); err != nil {
		slog.Error("delete expired captures", "error", err)
		return
	}
	slog.Info("expired captures removed", "count", len(keys))
}
