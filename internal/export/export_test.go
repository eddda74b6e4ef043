package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attend/internal/models"
)

func sampleRecords() []models.AttendanceRecord {
	emp := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	checkIn := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(8 * time.Hour)

	return []models.AttendanceRecord{
		{
			ID:           uuid.New(),
			EmployeeID:   emp,
			Date:         time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			CheckInTime:  checkIn,
			CheckOutTime: &checkOut,
			KioskName:    "lobby",
			Confidence:   62.5,
			TotalHours:   8,
		},
		{
			ID:          uuid.New(),
			EmployeeID:  emp,
			Date:        time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			CheckInTime: checkIn.AddDate(0, 0, 1),
			KioskName:   "lobby",
			Confidence:  70,
		},
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New("xml"); err == nil {
		t.Fatal("New(xml): expected error")
	}
}

func TestNewDefaultsToCSV(t *testing.T) {
	e, err := New("")
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if e.ContentType() != "text/csv" {
		t.Errorf("ContentType() = %q, want text/csv", e.ContentType())
	}
}

func TestCSVExport(t *testing.T) {
	e, err := New(FormatCSV)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var buf bytes.Buffer
	if err := e.Export(&buf, sampleRecords()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 records", len(rows))
	}
	if rows[0][0] != "employee_id" {
		t.Errorf("header starts with %q, want employee_id", rows[0][0])
	}

	closed := rows[1]
	if closed[3] == "" {
		t.Error("closed session is missing check_out_time")
	}
	if closed[6] != "8.00" {
		t.Errorf("total_hours = %q, want 8.00", closed[6])
	}

	open := rows[2]
	if open[3] != "" {
		t.Errorf("open session check_out_time = %q, want empty", open[3])
	}
	if open[6] != "0.00" {
		t.Errorf("open session total_hours = %q, want 0.00", open[6])
	}
}

func TestJSONExport(t *testing.T) {
	e, err := New(FormatJSON)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want application/json", e.ContentType())
	}

	var buf bytes.Buffer
	if err := e.Export(&buf, sampleRecords()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var out []models.AttendanceRecord
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].CheckOutTime == nil {
		t.Error("closed session lost its check_out_time")
	}
	if out[1].CheckOutTime != nil {
		t.Error("open session gained a check_out_time")
	}
	if !strings.Contains(buf.String(), "lobby") {
		t.Error("output is missing kiosk name")
	}
}

func TestCollectAllDrainsEveryPage(t *testing.T) {
	emp := uuid.New()
	backing := make([]models.AttendanceRecord, 1203)
	for i := range backing {
		backing[i] = models.AttendanceRecord{
			ID:          uuid.New(),
			EmployeeID:  emp,
			Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			CheckInTime: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			KioskName:   "lobby",
		}
	}

	calls := 0
	records, err := CollectAll(func(limit, offset int) ([]models.AttendanceRecord, int, error) {
		calls++
		if offset >= len(backing) {
			return nil, len(backing), nil
		}
		end := offset + limit
		if end > len(backing) {
			end = len(backing)
		}
		return backing[offset:end], len(backing), nil
	})
	if err != nil {
		t.Fatalf("CollectAll: %v", err)
	}

	if len(records) != len(backing) {
		t.Fatalf("collected %d records, want %d", len(records), len(backing))
	}
	if calls != 3 {
		t.Errorf("fetched %d pages, want 3", calls)
	}
	if records[0].ID != backing[0].ID || records[len(records)-1].ID != backing[len(backing)-1].ID {
		t.Error("collected records are out of order")
	}

	// The full set survives rendering, not just the first page.
	var buf bytes.Buffer
	e, _ := New(FormatCSV)
	if err := e.Export(&buf, records); err != nil {
		t.Fatalf("Export: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != len(backing)+1 {
		t.Errorf("exported %d rows, want header + %d records", len(rows), len(backing))
	}
}

func TestCollectAllPropagatesFetchError(t *testing.T) {
	boom := errors.New("db down")
	if _, err := CollectAll(func(limit, offset int) ([]models.AttendanceRecord, int, error) {
		return nil, 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want fetch error", err)
	}
}

func TestCSVExportEmpty(t *testing.T) {
	e, _ := New(FormatCSV)

	var buf bytes.Buffer
	if err := e.Export(&buf, nil); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want header only", len(rows))
	}
}
