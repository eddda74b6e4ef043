package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/attend/internal/config"
	"github.com/your-org/attend/internal/models"
	"github.com/your-org/attend/internal/recognition"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Employees ---

func (s *PostgresStore) CreateEmployee(ctx context.Context, name, department, designation string) (*models.Employee, error) {
	e := &models.Employee{
		ID:          uuid.New(),
		Name:        name,
		Department:  department,
		Designation: designation,
		Status:      models.EmployeeActive,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO employees (id, name, department, designation, status) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		e.ID, e.Name, e.Department, e.Designation, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e := &models.Employee{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, department, designation, status, created_at, updated_at FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Department, &e.Designation, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEmployees(ctx context.Context, status *models.EmployeeStatus) ([]models.Employee, error) {
	query := `SELECT id, name, department, designation, status, created_at, updated_at FROM employees`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Designation, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

// SetEmployeeStatus deactivates or reactivates an employee. Inactive
// employees keep their encodings but are excluded from matching.
func (s *PostgresStore) SetEmployeeStatus(ctx context.Context, id uuid.UUID, status models.EmployeeStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE employees SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set employee status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee not found")
	}
	return nil
}

// --- Face Encodings ---

func (s *PostgresStore) AddFaceEncoding(ctx context.Context, employeeID uuid.UUID, encoding []float32, quality float32, sourceKey string) (*models.FaceEncoding, error) {
	fe := &models.FaceEncoding{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Encoding:   encoding,
		Quality:    quality,
		SourceKey:  sourceKey,
	}
	vec := pgvector.NewVector(encoding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_encodings (id, employee_id, encoding, quality, source_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		fe.ID, fe.EmployeeID, vec, fe.Quality, fe.SourceKey,
	).Scan(&fe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add face encoding: %w", err)
	}
	return fe, nil
}

func (s *PostgresStore) DeleteFaceEncoding(ctx context.Context, employeeID, encodingID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_encodings WHERE id = $1 AND employee_id = $2`, encodingID, employeeID)
	if err != nil {
		return fmt.Errorf("delete face encoding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face encoding not found")
	}
	return nil
}

func (s *PostgresStore) ListFaceEncodings(ctx context.Context, employeeID uuid.UUID) ([]models.FaceEncoding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employee_id, quality, source_key, created_at FROM face_encodings WHERE employee_id = $1 ORDER BY created_at DESC`,
		employeeID)
	if err != nil {
		return nil, fmt.Errorf("list face encodings: %w", err)
	}
	defer rows.Close()

	var encodings []models.FaceEncoding
	for rows.Next() {
		var fe models.FaceEncoding
		if err := rows.Scan(&fe.ID, &fe.EmployeeID, &fe.Quality, &fe.SourceKey, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face encoding: %w", err)
		}
		encodings = append(encodings, fe)
	}
	return encodings, nil
}

func (s *PostgresStore) CountFaceEncodings(ctx context.Context, employeeID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_encodings WHERE employee_id = $1`, employeeID,
	).Scan(&count)
	return count, err
}

// ActiveCandidates loads every active employee with their stored encodings
// for the in-process matcher scan.
func (s *PostgresStore) ActiveCandidates(ctx context.Context) ([]recognition.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.name, fe.encoding
		 FROM employees e
		 JOIN face_encodings fe ON fe.employee_id = e.id
		 WHERE e.status = $1
		 ORDER BY e.id`, models.EmployeeActive)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var candidates []recognition.Candidate
	for rows.Next() {
		var (
			id   uuid.UUID
			name string
			vec  pgvector.Vector
		)
		if err := rows.Scan(&id, &name, &vec); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		if n := len(candidates); n > 0 && candidates[n-1].EmployeeID == id {
			candidates[n-1].Encodings = append(candidates[n-1].Encodings, vec.Slice())
			continue
		}
		candidates = append(candidates, recognition.Candidate{
			EmployeeID: id,
			Name:       name,
			Encodings:  [][]float32{vec.Slice()},
		})
	}
	return candidates, nil
}

// --- Attendance ---

func (s *PostgresStore) DayRecords(ctx context.Context, employeeID uuid.UUID, date time.Time) ([]models.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employee_id, date, check_in_time, check_out_time, kiosk_name, confidence, total_hours, capture_key, created_at
		 FROM attendance_records WHERE employee_id = $1 AND date = $2 ORDER BY check_in_time DESC`,
		employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("day records: %w", err)
	}
	defer rows.Close()

	return scanAttendance(rows)
}

func (s *PostgresStore) CreateCheckIn(ctx context.Context, rec *models.AttendanceRecord) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance_records (id, employee_id, date, check_in_time, kiosk_name, confidence, capture_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		rec.ID, rec.EmployeeID, rec.Date, rec.CheckInTime, rec.KioskName, rec.Confidence, rec.CaptureKey,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create check-in: %w", err)
	}
	return nil
}

// CloseSession pairs a check-out with an open check-in. The WHERE clause is
// the optimistic-concurrency guard: zero rows means another writer already
// closed the session.
func (s *PostgresStore) CloseSession(ctx context.Context, id uuid.UUID, checkOut time.Time, totalHours float64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE attendance_records SET check_out_time = $1, total_hours = $2 WHERE id = $3 AND check_out_time IS NULL`,
		checkOut, totalHours, id)
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AttendanceFilter narrows ListAttendance; zero values mean "any".
type AttendanceFilter struct {
	EmployeeID *uuid.UUID
	KioskName  string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (s *PostgresStore) ListAttendance(ctx context.Context, f AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if f.EmployeeID != nil {
		where += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *f.EmployeeID)
		argIdx++
	}
	if f.KioskName != "" {
		where += fmt.Sprintf(" AND kiosk_name = $%d", argIdx)
		args = append(args, f.KioskName)
		argIdx++
	}
	if f.From != nil {
		where += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_records "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, employee_id, date, check_in_time, check_out_time, kiosk_name, confidence, total_hours, capture_key, created_at
		 FROM attendance_records %s ORDER BY check_in_time DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	records, err := scanAttendance(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Stats returns today / this-week / this-month session counts, optionally
// scoped to one employee.
func (s *PostgresStore) Stats(ctx context.Context, employeeID *uuid.UUID, now time.Time) (*models.AttendanceStats, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int((now.Weekday()+6)%7)) // Monday
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &models.AttendanceStats{}
	for _, q := range []struct {
		from time.Time
		dst  *int
	}{
		{today, &stats.Today},
		{weekStart, &stats.ThisWeek},
		{monthStart, &stats.ThisMonth},
	} {
		query := `SELECT COUNT(*) FROM attendance_records WHERE date >= $1 AND date <= $2`
		args := []interface{}{q.from, today}
		if employeeID != nil {
			query += ` AND employee_id = $3`
			args = append(args, *employeeID)
		}
		if err := s.pool.QueryRow(ctx, query, args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("attendance stats: %w", err)
		}
	}
	return stats, nil
}

func scanAttendance(rows pgx.Rows) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.Date, &r.CheckInTime, &r.CheckOutTime,
			&r.KioskName, &r.Confidence, &r.TotalHours, &r.CaptureKey, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// --- Kiosks ---

func (s *PostgresStore) CreateKiosk(ctx context.Context, name, location, timezone string) (*models.Kiosk, error) {
	k := &models.Kiosk{
		ID:       uuid.New(),
		Name:     name,
		Location: location,
		Timezone: timezone,
		Active:   true,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO kiosks (id, name, location, timezone, active) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		k.ID, k.Name, k.Location, k.Timezone, k.Active,
	).Scan(&k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create kiosk: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) GetKiosk(ctx context.Context, id uuid.UUID) (*models.Kiosk, error) {
	k := &models.Kiosk{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, location, timezone, active, created_at, updated_at FROM kiosks WHERE id = $1`, id,
	).Scan(&k.ID, &k.Name, &k.Location, &k.Timezone, &k.Active, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get kiosk: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) GetKioskByName(ctx context.Context, name string) (*models.Kiosk, error) {
	k := &models.Kiosk{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, location, timezone, active, created_at, updated_at FROM kiosks WHERE name = $1`, name,
	).Scan(&k.ID, &k.Name, &k.Location, &k.Timezone, &k.Active, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get kiosk by name: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) ListKiosks(ctx context.Context) ([]models.Kiosk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, location, timezone, active, created_at, updated_at FROM kiosks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list kiosks: %w", err)
	}
	defer rows.Close()

	var kiosks []models.Kiosk
	for rows.Next() {
		var k models.Kiosk
		if err := rows.Scan(&k.ID, &k.Name, &k.Location, &k.Timezone, &k.Active, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan kiosk: %w", err)
		}
		kiosks = append(kiosks, k)
	}
	return kiosks, nil
}

func (s *PostgresStore) DeleteKiosk(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM kiosks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete kiosk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("kiosk not found")
	}
	return nil
}

// KioskActivity returns today's session count and last activity per kiosk.
func (s *PostgresStore) KioskActivity(ctx context.Context, kioskName string, date time.Time) (int, *time.Time, error) {
	var count int
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM attendance_records WHERE kiosk_name = $1 AND date = $2`,
		kioskName, date,
	).Scan(&count, &last)
	if err != nil {
		return 0, nil, fmt.Errorf("kiosk activity: %w", err)
	}
	return count, last, nil
}

// --- Conflict Logs ---

func (s *PostgresStore) CreateConflict(ctx context.Context, c *models.ConflictLog) error {
	c.ID = uuid.New()
	c.Status = models.ConflictPending
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conflict_logs (id, employee_id, date, primary_kiosk, conflict_kiosks, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (employee_id, date, primary_kiosk) DO UPDATE SET conflict_kiosks = EXCLUDED.conflict_kiosks
		 RETURNING created_at`,
		c.ID, c.EmployeeID, c.Date, c.PrimaryKiosk, c.ConflictKiosks, c.Status,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create conflict log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPendingConflicts(ctx context.Context) ([]models.ConflictLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employee_id, date, primary_kiosk, conflict_kiosks, status, created_at
		 FROM conflict_logs WHERE status = $1 ORDER BY created_at DESC`, models.ConflictPending)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []models.ConflictLog
	for rows.Next() {
		var c models.ConflictLog
		if err := rows.Scan(&c.ID, &c.EmployeeID, &c.Date, &c.PrimaryKiosk, &c.ConflictKiosks, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conflict log: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, nil
}

// MultiKioskEmployees finds employees whose records for the given date span
// more than one kiosk, with the kiosks involved. Used by the sync scan.
func (s *PostgresStore) MultiKioskEmployees(ctx context.Context, date time.Time) (map[uuid.UUID][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT employee_id, array_agg(DISTINCT kiosk_name)
		 FROM attendance_records WHERE date = $1
		 GROUP BY employee_id HAVING COUNT(DISTINCT kiosk_name) > 1`, date)
	if err != nil {
		return nil, fmt.Errorf("multi-kiosk employees: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]string)
	for rows.Next() {
		var id uuid.UUID
		var kiosks []string
		if err := rows.Scan(&id, &kiosks); err != nil {
			return nil, fmt.Errorf("scan multi-kiosk row: %w", err)
		}
		out[id] = kiosks
	}
	return out, nil
}
