package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attend/internal/attendance"
	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/observability"
	"github.com/your-org/attend/internal/queue"
	"github.com/your-org/attend/internal/recognition"
	"github.com/your-org/attend/internal/storage"
	"github.com/your-org/attend/internal/vision"
)

// Rejection reasons carried on outcomes and metric labels.
const (
	ReasonQuality   = "quality"
	ReasonLiveness  = "liveness"
	ReasonNoFace    = "no_face"
	ReasonSmallFace = "face_too_small"
	ReasonNoMatch   = "no_match"
	ReasonDebounce  = "debounce"
	ReasonConflict  = "location_conflict"
)

// Pipeline runs a capture through the full chain:
// quality gate → detect+encode → match → resolve → persist → outcome.
// Encoding failures and rejections become outcomes with a reason; only
// infrastructure failures surface as errors so the message is retried.
type Pipeline struct {
	encoder  *vision.Encoder
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
	resolver *attendance.Resolver

	recCfg      config.RecognitionConfig
	qualityCfg  config.QualityConfig
	livenessCfg config.LivenessConfig
}

func New(
	cfg *config.Config,
	encoder *vision.Encoder,
	db *storage.PostgresStore,
	minio *storage.MinIOStore,
	producer *queue.Producer,
) *Pipeline {
	return &Pipeline{
		encoder:     encoder,
		db:          db,
		minio:       minio,
		producer:    producer,
		resolver:    attendance.NewResolver(db, cfg.Recognition.MinGap),
		recCfg:      cfg.Recognition,
		qualityCfg:  cfg.Quality,
		livenessCfg: cfg.Liveness,
	}
}

// ProcessCapture handles one queued capture task end to end and publishes
// the outcome for live subscribers.
func (p *Pipeline) ProcessCapture(ctx context.Context, task models.CaptureTask) error {
	imageData, err := p.minio.GetObject(ctx, task.CaptureRef)
	if err != nil {
		return fmt.Errorf("load capture: %w", err)
	}

	outcome, err := p.Recognize(ctx, imageData, task.KioskName, task.Timestamp, task.CaptureRef)
	if err != nil {
		return err
	}
	outcome.CaptureID = task.CaptureID

	observability.CapturesProcessed.WithLabelValues(task.KioskName).Inc()
	if outcome.Matched {
		observability.FacesMatched.WithLabelValues(task.KioskName).Inc()
	}
	if outcome.RejectedReason != "" {
		observability.CapturesRejected.WithLabelValues(task.KioskName, outcome.RejectedReason).Inc()
	}
	if outcome.EventKind != "" {
		observability.AttendanceEvents.WithLabelValues(task.KioskName, string(outcome.EventKind)).Inc()
	}

	if err := p.producer.PublishOutcome(ctx, task.KioskName, outcome); err != nil {
		slog.Error("publish outcome", "error", err, "capture", task.CaptureID)
	}
	return nil
}

// Recognize classifies one capture image. The returned outcome always has
// either a recorded event or a rejection reason; a non-nil error means the
// store or queue failed and nothing conclusive happened.
func (p *Pipeline) Recognize(ctx context.Context, imageData []byte, kioskName string, ts time.Time, captureKey string) (*models.CaptureOutcome, error) {
	outcome := &models.CaptureOutcome{
		KioskName: kioskName,
		Timestamp: ts,
	}

	img, err := decodeImage(imageData)
	if err != nil {
		outcome.RejectedReason = ReasonQuality
		return outcome, nil
	}

	quality := recognition.CheckImage(img, p.qualityCfg)
	if !quality.OK {
		slog.Debug("capture failed quality gate", "kiosk", kioskName, "reason", quality.Reason)
		outcome.RejectedReason = ReasonQuality
		return outcome, nil
	}

	if p.livenessCfg.Enabled {
		liveness := recognition.ScoreLiveness(img)
		if liveness.Score <= p.livenessCfg.MinScore {
			slog.Debug("capture failed liveness", "kiosk", kioskName, "score", liveness.Score)
			outcome.RejectedReason = ReasonLiveness
			return outcome, nil
		}
	}

	start := time.Now()
	result, err := p.encoder.EncodeCapture(imageData)
	observability.RecognitionDuration.WithLabelValues("encode").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, vision.ErrNoFace) {
			outcome.RejectedReason = ReasonNoFace
			return outcome, nil
		}
		return nil, fmt.Errorf("encode capture: %w", err)
	}

	if result.FaceRatio < p.qualityCfg.MinFaceRatio {
		outcome.RejectedReason = ReasonSmallFace
		return outcome, nil
	}

	candidates, err := p.db.ActiveCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	start = time.Now()
	match := recognition.BestMatch(result.Encoding, candidates, recognition.Params{
		Tolerance: p.recCfg.Tolerance,
	})
	observability.RecognitionDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())

	if !match.Matched {
		outcome.RejectedReason = ReasonNoMatch
		return outcome, nil
	}

	outcome.Matched = true
	outcome.EmployeeID = &match.EmployeeID
	outcome.EmployeeName = match.Name
	outcome.Confidence = match.Confidence

	rec, kind, err := p.resolver.Resolve(ctx, attendance.Request{
		EmployeeID: match.EmployeeID,
		KioskName:  kioskName,
		Timestamp:  ts,
		Confidence: float32(match.Confidence),
		CaptureKey: captureKey,
	})
	if err != nil {
		var conflict *attendance.ConflictError
		switch {
		case errors.Is(err, attendance.ErrDebounce):
			outcome.RejectedReason = ReasonDebounce
			return outcome, nil
		case errors.As(err, &conflict):
			outcome.RejectedReason = ReasonConflict
			p.logConflict(ctx, match.EmployeeID, ts, conflict.OpenKiosk, kioskName)
			return outcome, nil
		default:
			return nil, fmt.Errorf("resolve attendance: %w", err)
		}
	}

	outcome.EventKind = kind
	if kind == models.CheckOut {
		outcome.TotalHours = rec.TotalHours
	}
	return outcome, nil
}

func (p *Pipeline) logConflict(ctx context.Context, employeeID uuid.UUID, ts time.Time, openKiosk, arrivedKiosk string) {
	c := &models.ConflictLog{
		EmployeeID:     employeeID,
		Date:           attendance.DayOf(ts),
		PrimaryKiosk:   openKiosk,
		ConflictKiosks: []string{arrivedKiosk},
	}
	if err := p.db.CreateConflict(ctx, c); err != nil {
		slog.Error("record conflict", "error", err, "employee", c.EmployeeID)
	}
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
