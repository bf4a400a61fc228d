package seatstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"cinema_booking/model"

	"github.com/google/uuid"
)

// MemoryStore bản in-memory của Store, khóa bằng mutex. Dùng cho test và
// cho triển khai một tiến trình không cần Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	showtimes map[uint]*memShowtime
	pub       Publisher
}

type memShowtime struct {
	capacity int
	booked   map[string]bool
	held     map[string]memHold
}

type memHold struct {
	bookingId uuid.UUID
	userId    uint
	expiresAt time.Time
}

func NewMemoryStore(pub Publisher) *MemoryStore {
	return &MemoryStore{
		showtimes: make(map[uint]*memShowtime),
		pub:       pub,
	}
}

// AddShowtime đăng ký một suất chiếu trước khi dùng các primitive trên nó
func (m *MemoryStore) AddShowtime(id uint, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.showtimes[id]; !ok {
		m.showtimes[id] = &memShowtime{
			capacity: capacity,
			booked:   make(map[string]bool),
			held:     make(map[string]memHold),
		}
	}
}

func (m *MemoryStore) publish(showtimeId uint) {
	if m.pub != nil {
		m.pub.SeatStateChanged(showtimeId)
	}
}

func (m *MemoryStore) TryHold(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID, userId uint, ttl time.Duration) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return nil, ErrShowtimeNotFound
	}

	now := time.Now()
	var conflicts []string
	for _, seat := range seats {
		if st.booked[seat] {
			conflicts = append(conflicts, seat)
			continue
		}
		if h, held := st.held[seat]; held && h.expiresAt.After(now) {
			conflicts = append(conflicts, seat)
		}
	}
	if len(conflicts) > 0 {
		m.mu.Unlock()
		return conflicts, ErrSeatConflict
	}

	exp := now.Add(ttl)
	for _, seat := range seats {
		st.held[seat] = memHold{bookingId: bookingId, userId: userId, expiresAt: exp}
	}
	m.mu.Unlock()

	m.publish(showtimeId)
	return nil, nil
}

func (m *MemoryStore) Promote(ctx context.Context, showtimeId uint, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return ErrShowtimeNotFound
	}
	for _, seat := range seats {
		delete(st.held, seat)
		st.booked[seat] = true
	}
	m.mu.Unlock()

	m.publish(showtimeId)
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID) error {
	if len(seats) == 0 {
		return nil
	}
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	for _, seat := range seats {
		if h, held := st.held[seat]; held && h.bookingId == bookingId {
			delete(st.held, seat)
		}
	}
	m.mu.Unlock()

	m.publish(showtimeId)
	return nil
}

func (m *MemoryStore) Unbook(ctx context.Context, showtimeId uint, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	for _, seat := range seats {
		delete(st.booked, seat)
	}
	m.mu.Unlock()

	m.publish(showtimeId)
	return nil
}

func (m *MemoryStore) ExtendHolds(ctx context.Context, showtimeId uint, bookingId uuid.UUID, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return 0, ErrShowtimeNotFound
	}
	now := time.Now()
	var n int64
	for seat, h := range st.held {
		if h.bookingId == bookingId && h.expiresAt.After(now) {
			h.expiresAt = now.Add(ttl)
			st.held[seat] = h
			n++
		}
	}
	m.mu.Unlock()

	if n > 0 {
		m.publish(showtimeId)
	}
	return n, nil
}

func (m *MemoryStore) SweepExpired(ctx context.Context, showtimeId uint, now time.Time) (int64, error) {
	m.mu.Lock()
	var total int64
	changed := make([]uint, 0, 1)
	for id, st := range m.showtimes {
		if showtimeId != 0 && id != showtimeId {
			continue
		}
		var n int64
		for seat, h := range st.held {
			if !h.expiresAt.After(now) {
				delete(st.held, seat)
				n++
			}
		}
		if n > 0 {
			changed = append(changed, id)
			total += n
		}
	}
	m.mu.Unlock()

	for _, id := range changed {
		m.publish(id)
	}
	return total, nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, showtimeId uint) (*model.SeatMap, error) {
	m.mu.Lock()
	st, ok := m.showtimes[showtimeId]
	if !ok {
		m.mu.Unlock()
		return nil, ErrShowtimeNotFound
	}

	now := time.Now()
	purged := 0
	for seat, h := range st.held {
		if !h.expiresAt.After(now) {
			delete(st.held, seat)
			purged++
		}
	}

	sm := &model.SeatMap{
		ShowtimeId: showtimeId,
		Capacity:   st.capacity,
		Booked:     make([]string, 0, len(st.booked)),
		Held:       make([]string, 0, len(st.held)),
	}
	for seat := range st.booked {
		sm.Booked = append(sm.Booked, seat)
	}
	for seat := range st.held {
		sm.Held = append(sm.Held, seat)
	}
	m.mu.Unlock()

	sort.Strings(sm.Booked)
	sort.Strings(sm.Held)
	sm.AvailableCount = sm.Capacity - len(sm.Booked) - len(sm.Held)

	if purged > 0 {
		m.publish(showtimeId)
	}
	return sm, nil
}
