package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attend/internal/models"
)

// ErrDebounce is returned when a capture arrives inside the minimum gap
// after the employee's most recent check-in or check-out. Nothing is
// written; the caller shows "please wait", not "not recognized".
var ErrDebounce = errors.New("capture within minimum gap of previous event")

// ConflictError flags an open session at a different kiosk. The resolver
// never closes it; an operator does.
type ConflictError struct {
	OpenKiosk string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("open session at kiosk %q", e.OpenKiosk)
}

// Store is the persistence surface the resolver needs. CloseSession must be
// conditional on the session still being open and report whether it closed
// anything, so a concurrent close is detected instead of overwritten.
type Store interface {
	DayRecords(ctx context.Context, employeeID uuid.UUID, date time.Time) ([]models.AttendanceRecord, error)
	CreateCheckIn(ctx context.Context, rec *models.AttendanceRecord) error
	CloseSession(ctx context.Context, id uuid.UUID, checkOut time.Time, totalHours float64) (bool, error)
}

// Request is one matched capture to classify.
type Request struct {
	EmployeeID uuid.UUID
	KioskName  string
	Timestamp  time.Time
	Confidence float32
	CaptureKey string
}

// Resolver decides whether a matched capture is a check-in or a check-out.
// State is recomputed from the day's records on every arrival, so a day can
// hold any number of closed sessions. Arrivals for the same employee are
// serialized through a keyed mutex, which keeps the lock map bounded by
// headcount; cross-process races are caught by the conditional close.
type Resolver struct {
	store  Store
	minGap time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewResolver(store Store, minGap time.Duration) *Resolver {
	return &Resolver{
		store:  store,
		minGap: minGap,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// DayOf truncates a timestamp to its calendar date, keeping the location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Resolve classifies the capture and persists the resulting record. The
// returned record reflects the committed state. On any store failure the
// resolution aborts with nothing written.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*models.AttendanceRecord, models.EventKind, error) {
	date := DayOf(req.Timestamp)

	lock := r.keyLock(req.EmployeeID)
	lock.Lock()
	defer lock.Unlock()

	// A lost conditional close means another writer got there first;
	// rescan once with the fresh state before giving up.
	for attempt := 0; attempt < 2; attempt++ {
		rec, kind, retry, err := r.resolveOnce(ctx, req, date)
		if err != nil {
			return nil, "", err
		}
		if retry {
			continue
		}
		return rec, kind, nil
	}
	return nil, "", fmt.Errorf("resolve attendance: session state changed concurrently")
}

func (r *Resolver) resolveOnce(ctx context.Context, req Request, date time.Time) (*models.AttendanceRecord, models.EventKind, bool, error) {
	records, err := r.store.DayRecords(ctx, req.EmployeeID, date)
	if err != nil {
		return nil, "", false, fmt.Errorf("read day records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckInTime.After(records[j].CheckInTime)
	})

	if r.tooSoon(records, req.Timestamp) {
		return nil, "", false, ErrDebounce
	}

	open := openSession(records)
	if open == nil {
		rec := &models.AttendanceRecord{
			ID:          uuid.New(),
			EmployeeID:  req.EmployeeID,
			Date:        date,
			CheckInTime: req.Timestamp,
			KioskName:   req.KioskName,
			Confidence:  req.Confidence,
			CaptureKey:  req.CaptureKey,
		}
		if err := r.store.CreateCheckIn(ctx, rec); err != nil {
			return nil, "", false, fmt.Errorf("create check-in: %w", err)
		}
		return rec, models.CheckIn, false, nil
	}

	if open.KioskName != req.KioskName {
		return nil, "", false, &ConflictError{OpenKiosk: open.KioskName}
	}

	hours := Hours(open.CheckInTime, req.Timestamp)
	closed, err := r.store.CloseSession(ctx, open.ID, req.Timestamp, hours)
	if err != nil {
		return nil, "", false, fmt.Errorf("close session: %w", err)
	}
	if !closed {
		return nil, "", true, nil
	}

	out := *open
	t := req.Timestamp
	out.CheckOutTime = &t
	out.TotalHours = hours
	return &out, models.CheckOut, false, nil
}

// tooSoon reports whether the capture is within the minimum gap of the most
// recent check-in or most recent check-out recorded today.
func (r *Resolver) tooSoon(records []models.AttendanceRecord, now time.Time) bool {
	if r.minGap <= 0 {
		return false
	}
	for _, rec := range records {
		if now.Sub(rec.CheckInTime) < r.minGap {
			return true
		}
		if rec.CheckOutTime != nil && now.Sub(*rec.CheckOutTime) < r.minGap {
			return true
		}
	}
	return false
}

// openSession returns the most recent record without a paired check-out.
func openSession(records []models.AttendanceRecord) *models.AttendanceRecord {
	for i := range records {
		if records[i].Open() {
			return &records[i]
		}
	}
	return nil
}

// Hours computes the elapsed session length in hours, rounded to two
// decimals and never negative.
func Hours(checkIn, checkOut time.Time) float64 {
	h := checkOut.Sub(checkIn).Hours()
	if h < 0 {
		return 0
	}
	return math.Round(h*100) / 100
}

func (r *Resolver) keyLock(employeeID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[employeeID]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.locks[employeeID] = l
	return l
}
