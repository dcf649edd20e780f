package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Store persists patient profiles.
type Store interface {
	Upsert(ctx context.Context, req UpsertRequest) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
}

// SQLStore keeps profiles in the patients table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("patients: sql db required")
	}
	return &SQLStore{db: db}
}

const patientColumns = `id, phone, name, age, email, notes, concerns, created_at, updated_at`

func (s *SQLStore) Upsert(ctx context.Context, req UpsertRequest) (*Patient, error) {
	req.normalize()
	if req.Phone == "" {
		return nil, ErrInvalidPhone
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO patients (phone, name, age, email, notes, concerns, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (phone) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), patients.name),
			age = COALESCE(NULLIF(EXCLUDED.age, ''), patients.age),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), patients.email),
			notes = COALESCE(NULLIF(EXCLUDED.notes, ''), patients.notes),
			concerns = ARRAY(
				SELECT DISTINCT c FROM unnest(patients.concerns || EXCLUDED.concerns) AS c
			),
			updated_at = now()
		RETURNING `+patientColumns,
		req.Phone, req.Name, req.Age, req.Email, req.Notes, pq.Array(req.Concerns))

	p, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("patients: upsert: %w", err)
	}
	return p, nil
}

func (s *SQLStore) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE phone = $1`, phone)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: get: %w", err)
	}
	return p, nil
}

func scanPatient(row *sql.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Phone, &p.Name, &p.Age, &p.Email, &p.Notes,
		pq.Array(&p.Concerns), &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if p.Concerns == nil {
		p.Concerns = []string{}
	}
	return &p, nil
}

// MemoryStore is the in-process Store used without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byKey  map[string]*Patient
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]*Patient), now: time.Now}
}

func (m *MemoryStore) Upsert(ctx context.Context, req UpsertRequest) (*Patient, error) {
	req.normalize()
	if req.Phone == "" {
		return nil, ErrInvalidPhone
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	p, ok := m.byKey[req.Phone]
	if !ok {
		m.nextID++
		p = &Patient{ID: m.nextID, Phone: req.Phone, Concerns: []string{}, CreatedAt: now}
		m.byKey[req.Phone] = p
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Age != "" {
		p.Age = req.Age
	}
	if req.Email != "" {
		p.Email = req.Email
	}
	if req.Notes != "" {
		p.Notes = req.Notes
	}
	p.Concerns = mergeConcerns(p.Concerns, req.Concerns)
	p.UpdatedAt = now

	out := *p
	out.Concerns = append([]string{}, p.Concerns...)
	return &out, nil
}

func (m *MemoryStore) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byKey[phone]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	out.Concerns = append([]string{}, p.Concerns...)
	return &out, nil
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
