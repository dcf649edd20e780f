package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// confirmedSlotIndex is the partial unique index that enforces one confirmed
// appointment per (date, time). See migrations/000001_appointments.up.sql.
const confirmedSlotIndex = "appointments_confirmed_slot_key"

const uniqueViolation = "23505"

const appointmentColumns = `id, name, phone, age, concern, date, time, status, created_at`

// pgxConn is the subset of pgxpool.Pool the repository needs.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresRepository stores the ledger in Postgres.
type PostgresRepository struct {
	db pgxConn
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithConn(db pgxConn) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

// Book inserts a confirmed row. The partial unique index makes the
// availability check and the insert a single atomic step.
func (r *PostgresRepository) Book(ctx context.Context, req BookRequest, createdAt time.Time) (*Appointment, error) {
	query := `
		INSERT INTO appointments (name, phone, age, concern, date, time, time_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'confirmed', $8)
		RETURNING ` + appointmentColumns
	row := r.db.QueryRow(ctx, query,
		req.Name,
		req.Phone,
		req.Age,
		req.Concern,
		req.Date,
		req.Time,
		slotOrder(req.Time),
		createdAt,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		if isSlotConflict(err) {
			return nil, &SlotTakenError{Date: req.Date, Time: req.Time}
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) List(ctx context.Context, date string) ([]Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if date != "" {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE date = $1 AND status = 'confirmed'
			ORDER BY time_minutes, time, id
		`, date)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE status = 'confirmed'
			ORDER BY date, time_minutes, time, id
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return collectAppointments(rows, "list")
}

func (r *PostgresRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT time FROM appointments
		WHERE date = $1 AND status = 'confirmed'
	`, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times failed: %w", err)
	}
	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times scan: %w", err)
	}
	return times, nil
}

// Cancel flips the latest-dated confirmed match (highest id on ties) to cancelled.
func (r *PostgresRepository) Cancel(ctx context.Context, ref PatientRef) (*Appointment, error) {
	query := `
		UPDATE appointments SET status = 'cancelled'
		WHERE id = (
			SELECT id FROM appointments
			WHERE name = $1 AND phone = $2 AND status = 'confirmed'
			ORDER BY date DESC, id DESC
			LIMIT 1
			FOR UPDATE
		) AND status = 'confirmed'
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, ref.Name, ref.Phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: cancel failed: %w", err)
	}
	return appt, nil
}

// Reschedule locks the patient's latest confirmed row and moves it in place.
func (r *PostgresRepository) Reschedule(ctx context.Context, req RescheduleRequest) (out *Rescheduled, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reschedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE name = $1 AND phone = $2 AND status = 'confirmed'
		ORDER BY date DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, req.Name, req.Phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select for reschedule: %w", err)
	}

	if _, err = tx.Exec(ctx, `
		UPDATE appointments SET date = $2, time = $3, time_minutes = $4
		WHERE id = $1
	`, current.ID, req.NewDate, req.NewTime, slotOrder(req.NewTime)); err != nil {
		if isSlotConflict(err) {
			return nil, &SlotTakenError{Date: req.NewDate, Time: req.NewTime}
		}
		return nil, fmt.Errorf("appointments: reschedule update: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if isSlotConflict(err) {
			return nil, &SlotTakenError{Date: req.NewDate, Time: req.NewTime}
		}
		return nil, fmt.Errorf("appointments: commit reschedule: %w", err)
	}

	out = &Rescheduled{PreviousDate: current.Date, PreviousTime: current.Time}
	moved := *current
	moved.Date = req.NewDate
	moved.Time = req.NewTime
	out.Appointment = moved
	return out, nil
}

// History returns every row for a phone, cancelled ones included, newest date first.
func (r *PostgresRepository) History(ctx context.Context, phone string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE phone = $1
		ORDER BY date DESC, time_minutes DESC, id DESC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("appointments: history failed: %w", err)
	}
	return collectAppointments(rows, "history")
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Phone,
		&appt.Age,
		&appt.Concern,
		&appt.Date,
		&appt.Time,
		&status,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}

func collectAppointments(rows pgx.Rows, op string) ([]Appointment, error) {
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: %s scan: %w", op, err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: %s rows: %w", op, err)
	}
	return out, nil
}

// isSlotConflict reports whether err is the confirmed-slot uniqueness violation.
// Other constraint violations are storage failures, not SlotTaken.
func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == confirmedSlotIndex
}

var _ Repository = (*PostgresRepository)(nil)
