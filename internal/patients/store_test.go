package patients

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
)

var patientCols = []string{"id", "phone", "name", "age", "email", "notes", "concerns", "created_at", "updated_at"}

func TestSQLStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs("98765", "Asha", "34", "asha@example.com", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(int64(1), "98765", "Asha", "34", "asha@example.com", "", "{PCOS,\"weight loss\"}", now, now))

	store := NewSQLStore(db)
	p, err := store.Upsert(context.Background(), UpsertRequest{
		Phone: " 98765 ", Name: "Asha", Age: "34", Email: "asha@example.com",
		Concerns: []string{"PCOS", "weight loss"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, []string{"PCOS", "weight loss"}, p.Concerns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpsertRequiresPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(db).Upsert(context.Background(), UpsertRequest{Name: "Asha"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetByPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE phone = $1")).
		WithArgs("98765").
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(int64(3), "98765", "Asha", "", "", "", "{}", now, now))

	p, err := NewSQLStore(db).GetByPhone(context.Background(), "98765")
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)
	assert.NotNil(t, p.Concerns)
	assert.Empty(t, p.Concerns)
}

func TestSQLStore_GetByPhoneNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM patients").WillReturnError(sql.ErrNoRows)

	_, err = NewSQLStore(db).GetByPhone(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_GetByPhoneFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM patients").WillReturnError(errors.New("connection refused"))

	_, err = NewSQLStore(db).GetByPhone(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_UpsertMerges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Upsert(ctx, UpsertRequest{Phone: "1", Name: "Asha", Email: "a@example.com", Concerns: []string{"PCOS"}})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, UpsertRequest{Phone: "1", Age: "34", Concerns: []string{"pcos", "thyroid"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Asha", second.Name)
	assert.Equal(t, "a@example.com", second.Email)
	assert.Equal(t, "34", second.Age)
	assert.Equal(t, []string{"PCOS", "thyroid"}, second.Concerns)

	_, err = store.GetByPhone(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileHook_UpsertsOnBooking(t *testing.T) {
	store := NewMemoryStore()
	hook := NewProfileHook(store)
	ctx := context.Background()

	appt := appointments.Appointment{ID: 1, Name: "Asha", Phone: "1", Age: "34", Concern: "diabetes diet", Date: "2025-06-01", Time: "10:00 AM"}
	require.NoError(t, hook.AppointmentChanged(ctx, appointments.Change{Kind: appointments.ChangeCancelled, Appointment: appt}))
	_, err := store.GetByPhone(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, hook.AppointmentChanged(ctx, appointments.Change{Kind: appointments.ChangeBooked, Appointment: appt, Email: "asha@example.com"}))
	p, err := store.GetByPhone(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, []string{"diabetes diet"}, p.Concerns)
}
