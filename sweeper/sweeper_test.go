package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinema_booking/booking"
	"cinema_booking/constants"
	"cinema_booking/model"
	"cinema_booking/seatstore"
	"cinema_booking/sweeper"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpiredLister struct {
	mu     sync.Mutex
	rows   []model.Booking
	err    error
	before time.Time
	limit  int
}

func (f *fakeExpiredLister) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before = before
	f.limit = limit
	return f.rows, f.err
}

type fakeCancelEngine struct {
	mu        sync.Mutex
	cancelled []uuid.UUID
	errs      map[uuid.UUID]error
}

func (f *fakeCancelEngine) CancelIfPending(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	f.cancelled = append(f.cancelled, id)
	return &model.Booking{ID: id, Status: constants.BOOKING_CANCELLED}, nil
}

type fakeStalePayments struct {
	mu     sync.Mutex
	before time.Time
	n      int64
}

func (f *fakeStalePayments) FailStale(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before = before
	return f.n, nil
}

func expiredRow(code string) model.Booking {
	return model.Booking{ID: uuid.New(), Code: code, Status: constants.BOOKING_PENDING}
}

func TestExpireBookings(t *testing.T) {
	rows := []model.Booking{expiredRow("AAAA1111"), expiredRow("BBBB2222"), expiredRow("CCCC3333")}
	lister := &fakeExpiredLister{rows: rows}
	engine := &fakeCancelEngine{errs: map[uuid.UUID]error{}}
	s := sweeper.NewSweeper(lister, engine, &fakeStalePayments{}, seatstore.NewMemoryStore(nil),
		15*time.Minute, 5*time.Minute, 10*time.Minute)

	s.ExpireBookings()

	assert.Len(t, engine.cancelled, 3)
	assert.Equal(t, constants.EXPIRE_BATCH_SIZE, lister.limit)
	// Mốc quét lùi đúng thời hạn giữ booking
	assert.WithinDuration(t, time.Now().Add(-15*time.Minute), lister.before, 2*time.Second)
}

func TestExpireBookings_SkipsFailuresAndKeepsGoing(t *testing.T) {
	rows := []model.Booking{expiredRow("AAAA1111"), expiredRow("BBBB2222"), expiredRow("CCCC3333")}
	engine := &fakeCancelEngine{errs: map[uuid.UUID]error{
		// Một booking vừa kịp CONFIRMED, một booking lỗi storage
		rows[0].ID: booking.ErrInvalidTransition,
		rows[1].ID: errors.New("db down"),
	}}
	lister := &fakeExpiredLister{rows: rows}
	s := sweeper.NewSweeper(lister, engine, &fakeStalePayments{}, seatstore.NewMemoryStore(nil),
		15*time.Minute, 5*time.Minute, 10*time.Minute)

	s.ExpireBookings()

	require.Len(t, engine.cancelled, 1)
	assert.Equal(t, rows[2].ID, engine.cancelled[0])
}

func TestExpireBookings_ListFailure(t *testing.T) {
	lister := &fakeExpiredLister{err: errors.New("db down")}
	engine := &fakeCancelEngine{}
	s := sweeper.NewSweeper(lister, engine, &fakeStalePayments{}, seatstore.NewMemoryStore(nil),
		15*time.Minute, 5*time.Minute, 10*time.Minute)

	s.ExpireBookings()
	assert.Empty(t, engine.cancelled)
}

func TestSweepHolds(t *testing.T) {
	store := seatstore.NewMemoryStore(nil)
	store.AddShowtime(1, 80)
	ctx := context.Background()

	// Hold với TTL âm coi như đã hết hạn từ trước
	_, err := store.TryHold(ctx, 1, []string{"A1", "A2"}, uuid.New(), 1, -time.Second)
	require.NoError(t, err)
	_, err = store.TryHold(ctx, 1, []string{"B1"}, uuid.New(), 2, time.Hour)
	require.NoError(t, err)

	s := sweeper.NewSweeper(&fakeExpiredLister{}, &fakeCancelEngine{}, &fakeStalePayments{}, store,
		15*time.Minute, 5*time.Minute, 10*time.Minute)
	s.SweepHolds()

	sm, err := store.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, sm.Held, "hold còn hạn phải được giữ nguyên")
}

func TestFailStalePayments(t *testing.T) {
	payments := &fakeStalePayments{n: 4}
	s := sweeper.NewSweeper(&fakeExpiredLister{}, &fakeCancelEngine{}, payments, seatstore.NewMemoryStore(nil),
		15*time.Minute, 5*time.Minute, 10*time.Minute)

	s.FailStalePayments()
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), payments.before, 2*time.Second)
}

func TestStartStop(t *testing.T) {
	s := sweeper.NewSweeper(&fakeExpiredLister{}, &fakeCancelEngine{}, &fakeStalePayments{}, seatstore.NewMemoryStore(nil),
		15*time.Minute, time.Hour, time.Hour)

	require.NoError(t, s.Start())
	s.Stop()
}
