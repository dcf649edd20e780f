package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSlots = []string{"10:00 AM", "11:00 AM", "12:00 PM", "2:00 PM", "3:00 PM"}

func bookReq(name, phone, date, slot string) BookRequest {
	return BookRequest{Name: name, Phone: phone, Age: "30", Concern: "checkup", Date: date, Time: slot}
}

func TestMemoryRepository_BookRejectsTakenSlot(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, StatusConfirmed, first.Status)

	_, err = repo.Book(ctx, bookReq("B", "2", "2025-06-01", "10:00 AM"), time.Now())
	require.Error(t, err)
	taken, ok := IsSlotTaken(err)
	require.True(t, ok)
	assert.Equal(t, "2025-06-01", taken.Date)
	assert.Equal(t, "10:00 AM", taken.Time)

	appts, err := repo.List(ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "A", appts[0].Name)
}

func TestMemoryRepository_ConcurrentBookingsKeepOneConfirmed(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Book(ctx, bookReq(fmt.Sprintf("P%d", i), fmt.Sprint(i), "2025-06-01", "11:00 AM"), time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
	booked, err := repo.BookedTimes(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00 AM"}, booked)
}

func TestMemoryRepository_ListOrdering(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, r := range []BookRequest{
		bookReq("C", "3", "2025-06-02", "10:00 AM"),
		bookReq("B", "2", "2025-06-01", "2:00 PM"),
		bookReq("A", "1", "2025-06-01", "10:00 AM"),
		bookReq("D", "4", "2025-06-01", "12:00 PM"),
	} {
		_, err := repo.Book(ctx, r, time.Now())
		require.NoError(t, err)
	}

	day, err := repo.List(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM", "12:00 PM", "2:00 PM"}, times(day))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2025-06-02", all[3].Date)

	empty, err := repo.List(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryRepository_CancelThenSlotFreesUp(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "10:00 AM", cancelled.Time)

	booked, err := repo.BookedTimes(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Contains(t, AvailableSlots(testSlots, booked), "10:00 AM")

	_, err = repo.Book(ctx, bookReq("B", "2", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)
}

func TestMemoryRepository_CancelIsNotRepeatable(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Cancel(ctx, PatientRef{Name: "Nobody", Phone: "0"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	require.NoError(t, err)

	before, err := repo.History(ctx, "1")
	require.NoError(t, err)

	_, err = repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := repo.History(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMemoryRepository_CancelPicksLatestThenHighestID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("A", "1", "2025-06-03", "10:00 AM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Book(ctx, bookReq("A", "1", "2025-06-05", "10:00 AM"), time.Now())
	require.NoError(t, err)
	third, err := repo.Book(ctx, bookReq("A", "1", "2025-06-05", "2:00 PM"), time.Now())
	require.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, third.ID, cancelled.ID)

	next, err := repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-05", next.Date)
	assert.Equal(t, "10:00 AM", next.Time)
}

func TestMemoryRepository_CancelRequiresExactNameAndPhone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("Asha", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)

	_, err = repo.Cancel(ctx, PatientRef{Name: "asha", Phone: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Cancel(ctx, PatientRef{Name: "Asha", Phone: "2"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_RescheduleMovesInPlace(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	orig, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)

	out, err := repo.Reschedule(ctx, RescheduleRequest{Name: "A", Phone: "1", NewDate: "2025-06-01", NewTime: "3:00 PM"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", out.PreviousDate)
	assert.Equal(t, "10:00 AM", out.PreviousTime)

	moved := out.Appointment
	assert.Equal(t, orig.ID, moved.ID)
	assert.Equal(t, orig.Name, moved.Name)
	assert.Equal(t, orig.Phone, moved.Phone)
	assert.Equal(t, orig.Age, moved.Age)
	assert.Equal(t, orig.Concern, moved.Concern)
	assert.Equal(t, orig.CreatedAt, moved.CreatedAt)
	assert.Equal(t, StatusConfirmed, moved.Status)
	assert.Equal(t, "3:00 PM", moved.Time)

	day, err := repo.List(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"3:00 PM"}, times(day))
}

func TestMemoryRepository_RescheduleIntoTakenSlot(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Book(ctx, bookReq("B", "2", "2025-06-01", "11:00 AM"), time.Now())
	require.NoError(t, err)

	_, err = repo.Reschedule(ctx, RescheduleRequest{Name: "A", Phone: "1", NewDate: "2025-06-01", NewTime: "11:00 AM"})
	require.ErrorIs(t, err, ErrSlotTaken)

	history, err := repo.History(ctx, "1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "10:00 AM", history[0].Time)
	assert.Equal(t, StatusConfirmed, history[0].Status)
}

func TestMemoryRepository_RescheduleIntoOwnSlot(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)

	out, err := repo.Reschedule(ctx, RescheduleRequest{Name: "A", Phone: "1", NewDate: "2025-06-01", NewTime: "10:00 AM"})
	require.NoError(t, err)
	assert.Equal(t, "10:00 AM", out.Appointment.Time)
}

func TestMemoryRepository_RescheduleNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Reschedule(context.Background(), RescheduleRequest{Name: "A", Phone: "1", NewDate: "2025-06-01", NewTime: "10:00 AM"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_HistoryIncludesCancelled(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Book(ctx, bookReq("A", "1", "2025-06-01", "10:00 AM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Cancel(ctx, PatientRef{Name: "A", Phone: "1"})
	require.NoError(t, err)
	_, err = repo.Book(ctx, bookReq("A", "1", "2025-07-01", "2:00 PM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Book(ctx, bookReq("A", "1", "2025-05-01", "11:00 AM"), time.Now())
	require.NoError(t, err)
	_, err = repo.Book(ctx, bookReq("Other", "9", "2025-06-01", "11:00 AM"), time.Now())
	require.NoError(t, err)

	history, err := repo.History(ctx, "1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"2025-07-01", "2025-06-01", "2025-05-01"},
		[]string{history[0].Date, history[1].Date, history[2].Date})
	assert.Equal(t, StatusCancelled, history[1].Status)

	none, err := repo.History(ctx, "404")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func times(appts []Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.Time)
	}
	return out
}
