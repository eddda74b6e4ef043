package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attend/internal/models"
)

type fakeStore struct {
	mu      sync.Mutex
	records []models.AttendanceRecord

	failDay    error
	failCreate error
	failClose  error
	loseClose  bool // report the open row as already closed once
}

func (s *fakeStore) DayRecords(_ context.Context, employeeID uuid.UUID, date time.Time) ([]models.AttendanceRecord, error) {
	if s.failDay != nil {
		return nil, s.failDay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AttendanceRecord
	for _, r := range s.records {
		if r.EmployeeID == employeeID && r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateCheckIn(_ context.Context, rec *models.AttendanceRecord) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakeStore) CloseSession(_ context.Context, id uuid.UUID, checkOut time.Time, totalHours float64) (bool, error) {
	if s.failClose != nil {
		return false, s.failClose
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if s.records[i].CheckOutTime != nil {
			return false, nil
		}
		if s.loseClose {
			// Simulate another writer closing the row between the scan
			// and this update.
			s.loseClose = false
			t := checkOut.Add(-time.Second)
			s.records[i].CheckOutTime = &t
			return false, nil
		}
		t := checkOut
		s.records[i].CheckOutTime = &t
		s.records[i].TotalHours = totalHours
		return true, nil
	}
	return false, nil
}

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func request(id uuid.UUID, ts time.Time) Request {
	return Request{EmployeeID: id, KioskName: "lobby", Timestamp: ts, Confidence: 80}
}

func TestResolveFirstEventIsCheckIn(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 5*time.Minute)
	emp := uuid.New()

	rec, kind, err := r.Resolve(context.Background(), request(emp, at(9, 0)))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if kind != models.CheckIn {
		t.Errorf("kind = %s; want check_in", kind)
	}
	if !rec.Open() {
		t.Error("first record should be an open session")
	}
	if len(store.records) != 1 {
		t.Fatalf("stored %d records; want 1", len(store.records))
	}
}

func TestResolveAlternation(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 5*time.Minute)
	emp := uuid.New()
	ctx := context.Background()

	steps := []struct {
		ts   time.Time
		kind models.EventKind
	}{
		{at(9, 0), models.CheckIn},
		{at(13, 0), models.CheckOut},
		{at(14, 0), models.CheckIn},
		{at(18, 0), models.CheckOut},
	}

	for i, step := range steps {
		_, kind, err := r.Resolve(ctx, request(emp, step.ts))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if kind != step.kind {
			t.Fatalf("step %d: kind = %s; want %s", i, kind, step.kind)
		}
	}

	if len(store.records) != 2 {
		t.Fatalf("stored %d records; want 2 closed sessions", len(store.records))
	}
	for _, rec := range store.records {
		if rec.Open() {
			t.Error("all sessions should be closed")
		}
		if rec.TotalHours != 4.0 {
			t.Errorf("total hours = %f; want 4.0", rec.TotalHours)
		}
	}
}

func TestResolveDebounce(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 5*time.Minute)
	emp := uuid.New()
	ctx := context.Background()

	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	_, _, err := r.Resolve(ctx, request(emp, at(9, 2)))
	if !errors.Is(err, ErrDebounce) {
		t.Fatalf("2 minute gap: err = %v; want ErrDebounce", err)
	}
	if len(store.records) != 1 {
		t.Errorf("debounced event must not write records")
	}

	// Exactly at the gap boundary classifies normally.
	_, kind, err := r.Resolve(ctx, request(emp, at(9, 5)))
	if err != nil {
		t.Fatalf("at gap boundary: %v", err)
	}
	if kind != models.CheckOut {
		t.Errorf("kind = %s; want check_out", kind)
	}
}

func TestResolveDebounceAgainstCheckOut(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 5*time.Minute)
	emp := uuid.New()
	ctx := context.Background()

	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.Resolve(ctx, request(emp, at(13, 0))); err != nil {
		t.Fatal(err)
	}

	// Inside the gap after the check-out.
	if _, _, err := r.Resolve(ctx, request(emp, at(13, 3))); !errors.Is(err, ErrDebounce) {
		t.Fatalf("err = %v; want ErrDebounce", err)
	}
}

func TestResolveLocationConflict(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 5*time.Minute)
	emp := uuid.New()
	ctx := context.Background()

	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); err != nil {
		t.Fatal(err)
	}

	req := request(emp, at(12, 0))
	req.KioskName = "warehouse"
	_, _, err := r.Resolve(ctx, req)

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v; want ConflictError", err)
	}
	if conflict.OpenKiosk != "lobby" {
		t.Errorf("open kiosk = %q; want lobby", conflict.OpenKiosk)
	}
	if store.records[0].Open() != true {
		t.Error("conflict must not close the open session")
	}
}

func TestResolveStoreFailures(t *testing.T) {
	boom := errors.New("db down")
	emp := uuid.New()
	ctx := context.Background()

	r := NewResolver(&fakeStore{failDay: boom}, 5*time.Minute)
	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); !errors.Is(err, boom) {
		t.Errorf("day records failure not propagated: %v", err)
	}

	store := &fakeStore{failCreate: boom}
	r = NewResolver(store, 5*time.Minute)
	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); !errors.Is(err, boom) {
		t.Errorf("create failure not propagated: %v", err)
	}
	if len(store.records) != 0 {
		t.Error("failed create must leave no partial state")
	}
}

func TestResolveLostCloseRescans(t *testing.T) {
	store := &fakeStore{loseClose: true}
	r := NewResolver(store, 0)
	emp := uuid.New()
	ctx := context.Background()

	if _, _, err := r.Resolve(ctx, request(emp, at(9, 0))); err != nil {
		t.Fatal(err)
	}

	// The conditional close loses the race; the rescan finds the session
	// closed by the other writer and starts a fresh one.
	rec, kind, err := r.Resolve(ctx, request(emp, at(13, 0)))
	if err != nil {
		t.Fatalf("resolve after lost close: %v", err)
	}
	if kind != models.CheckIn {
		t.Errorf("kind = %s; want check_in after concurrent close", kind)
	}
	if !rec.Open() {
		t.Error("fresh session should be open")
	}
	if len(store.records) != 2 {
		t.Errorf("stored %d records; want 2", len(store.records))
	}
}

func TestResolveConcurrentArrivals(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 0) // debounce off so both arrivals classify
	emp := uuid.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	kinds := make(chan models.EventKind, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, kind, err := r.Resolve(ctx, request(emp, at(9, offset)))
			if err != nil {
				t.Errorf("concurrent resolve: %v", err)
				return
			}
			kinds <- kind
		}(i)
	}
	wg.Wait()
	close(kinds)

	got := map[models.EventKind]int{}
	for k := range kinds {
		got[k]++
	}
	if got[models.CheckIn] != 1 || got[models.CheckOut] != 1 {
		t.Errorf("concurrent arrivals = %v; want one check-in and one check-out", got)
	}
}

func TestResolveLockPerEmployee(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store, 0)
	emp := uuid.New()
	ctx := context.Background()

	// A month of check-ins must not grow the lock map past the employee.
	for day := 0; day < 30; day++ {
		if _, _, err := r.Resolve(ctx, request(emp, at(9, 0).AddDate(0, 0, day))); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
	}

	r.mu.Lock()
	n := len(r.locks)
	r.mu.Unlock()
	if n != 1 {
		t.Errorf("lock map holds %d entries; want 1 per employee", n)
	}
}

func TestHours(t *testing.T) {
	tests := []struct {
		name     string
		in, out  time.Time
		expected float64
	}{
		{"four hours", at(9, 0), at(13, 0), 4.0},
		{"ninety minutes", at(9, 0), at(10, 30), 1.5},
		{"rounded to two decimals", at(9, 0), at(9, 10), 0.17},
		{"never negative", at(13, 0), at(9, 0), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Hours(tc.in, tc.out); got != tc.expected {
				t.Errorf("Hours = %f; want %f", got, tc.expected)
			}
		})
	}
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("kiosk", 5*3600)
	ts := time.Date(2025, 6, 2, 23, 30, 0, 0, loc)
	day := DayOf(ts)

	if day.Hour() != 0 || day.Minute() != 0 {
		t.Errorf("DayOf should truncate to midnight, got %v", day)
	}
	if day.Location() != loc {
		t.Error("DayOf should keep the kiosk timezone")
	}
	if day.Day() != 2 {
		t.Errorf("day = %d; want 2", day.Day())
	}
}
