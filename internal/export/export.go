package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/your-org/attend/internal/models"
)

// Format selects the attendance report encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Exporter writes attendance records in one report format.
type Exporter interface {
	ContentType() string
	Export(w io.Writer, records []models.AttendanceRecord) error
}

// New returns the exporter for a format.
func New(f Format) (Exporter, error) {
	switch f {
	case FormatCSV, "":
		return csvExporter{}, nil
	case FormatJSON:
		return jsonExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

// CollectAll drains a paged listing into one slice so exports cover the
// whole filtered set, not just the first page. fetch receives the page
// limit and offset and returns the page plus the total match count.
func CollectAll(fetch func(limit, offset int) ([]models.AttendanceRecord, int, error)) ([]models.AttendanceRecord, error) {
	const pageSize = 500

	var all []models.AttendanceRecord
	for offset := 0; ; offset += pageSize {
		page, total, err := fetch(pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize || len(all) >= total {
			return all, nil
		}
	}
}

type csvExporter struct{}

func (csvExporter) ContentType() string { return "text/csv" }

func (csvExporter) Export(w io.Writer, records []models.AttendanceRecord) error {
	cw := csv.NewWriter(w)

	header := []string{"employee_id", "date", "check_in_time", "check_out_time", "kiosk", "confidence", "total_hours"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		checkOut := ""
		if r.CheckOutTime != nil {
			checkOut = r.CheckOutTime.Format("2006-01-02T15:04:05Z07:00")
		}
		row := []string{
			r.EmployeeID.String(),
			r.Date.Format("2006-01-02"),
			r.CheckInTime.Format("2006-01-02T15:04:05Z07:00"),
			checkOut,
			r.KioskName,
			strconv.FormatFloat(float64(r.Confidence), 'f', 2, 64),
			strconv.FormatFloat(r.TotalHours, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

type jsonExporter struct{}

func (jsonExporter) ContentType() string { return "application/json" }

func (jsonExporter) Export(w io.Writer, records []models.AttendanceRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
