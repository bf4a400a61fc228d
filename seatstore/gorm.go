package seatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore thực thi Store trên Postgres. Mọi thao tác ghi chạy trong
// transaction khóa bản ghi suất chiếu (SELECT ... FOR UPDATE) nên các
// thao tác trên cùng một suất được tuần tự hóa.
type GormStore struct {
	db  *gorm.DB
	pub Publisher
}

func NewGormStore(db *gorm.DB, pub Publisher) *GormStore {
	return &GormStore{db: db, pub: pub}
}

const maxRetries = 3

// retriable: serialization failure hoặc deadlock thì thử lại được
func retriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func domainErr(err error) bool {
	return errors.Is(err, ErrSeatConflict) || errors.Is(err, ErrShowtimeNotFound)
}

func (s *GormStore) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || domainErr(err) {
			return err
		}
		if !retriable(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func lockShowtime(tx *gorm.DB, showtimeId uint) error {
	var st model.Showtime
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&st, showtimeId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrShowtimeNotFound
	}
	return err
}

func (s *GormStore) publish(showtimeId uint) {
	if s.pub != nil {
		s.pub.SeatStateChanged(showtimeId)
	}
}

func (s *GormStore) TryHold(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID, userId uint, ttl time.Duration) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	var conflicts []string
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		conflicts = conflicts[:0]
		if err := lockShowtime(tx, showtimeId); err != nil {
			return err
		}

		now := time.Now()
		var rows []model.ShowtimeSeat
		if err := tx.Where("showtime_id = ? AND seat IN ?", showtimeId, seats).Find(&rows).Error; err != nil {
			return err
		}
		var stale []uint
		for _, r := range rows {
			// hold quá hạn chưa bị sweeper dọn thì coi như ghế trống
			if r.Status == constants.SEAT_HELD && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
				stale = append(stale, r.ID)
				continue
			}
			conflicts = append(conflicts, r.Seat)
		}
		if len(conflicts) > 0 {
			return ErrSeatConflict
		}
		if len(stale) > 0 {
			if err := tx.Delete(&model.ShowtimeSeat{}, stale).Error; err != nil {
				return err
			}
		}

		exp := now.Add(ttl)
		holds := make([]model.ShowtimeSeat, 0, len(seats))
		for _, label := range seats {
			holds = append(holds, model.ShowtimeSeat{
				ShowtimeId: showtimeId,
				Seat:       label,
				Status:     constants.SEAT_HELD,
				BookingId:  bookingId,
				UserId:     userId,
				ExpiresAt:  &exp,
			})
		}
		return tx.Create(&holds).Error
	})
	if err != nil {
		if errors.Is(err, ErrSeatConflict) {
			return conflicts, err
		}
		return nil, err
	}
	s.publish(showtimeId)
	return nil, nil
}

func (s *GormStore) Promote(ctx context.Context, showtimeId uint, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		if err := lockShowtime(tx, showtimeId); err != nil {
			return err
		}
		rows := make([]model.ShowtimeSeat, 0, len(seats))
		for _, label := range seats {
			rows = append(rows, model.ShowtimeSeat{
				ShowtimeId: showtimeId,
				Seat:       label,
				Status:     constants.SEAT_BOOKED,
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "showtime_id"}, {Name: "seat"}},
			DoUpdates: clause.Assignments(map[string]any{"status": constants.SEAT_BOOKED, "expires_at": nil}),
		}).Create(&rows).Error
	})
	if err != nil {
		return err
	}
	s.publish(showtimeId)
	return nil
}

func (s *GormStore) Release(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID) error {
	if len(seats) == 0 {
		return nil
	}
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		// suất chiếu đã bị xóa thì vẫn dọn hold mồ côi, không cần khóa
		if err := lockShowtime(tx, showtimeId); err != nil && !errors.Is(err, ErrShowtimeNotFound) {
			return err
		}
		return tx.Where("showtime_id = ? AND seat IN ? AND status = ? AND booking_id = ?",
			showtimeId, seats, constants.SEAT_HELD, bookingId).
			Delete(&model.ShowtimeSeat{}).Error
	})
	if err != nil {
		return err
	}
	s.publish(showtimeId)
	return nil
}

func (s *GormStore) Unbook(ctx context.Context, showtimeId uint, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		if err := lockShowtime(tx, showtimeId); err != nil && !errors.Is(err, ErrShowtimeNotFound) {
			return err
		}
		return tx.Where("showtime_id = ? AND seat IN ? AND status = ?",
			showtimeId, seats, constants.SEAT_BOOKED).
			Delete(&model.ShowtimeSeat{}).Error
	})
	if err != nil {
		return err
	}
	s.publish(showtimeId)
	return nil
}

func (s *GormStore) ExtendHolds(ctx context.Context, showtimeId uint, bookingId uuid.UUID, ttl time.Duration) (int64, error) {
	var n int64
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		if err := lockShowtime(tx, showtimeId); err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&model.ShowtimeSeat{}).
			Where("showtime_id = ? AND booking_id = ? AND status = ? AND expires_at > ?",
				showtimeId, bookingId, constants.SEAT_HELD, now).
			Update("expires_at", now.Add(ttl))
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(showtimeId)
	}
	return n, nil
}

func (s *GormStore) SweepExpired(ctx context.Context, showtimeId uint, now time.Time) (int64, error) {
	if showtimeId != 0 {
		return s.sweepOne(ctx, showtimeId, now)
	}

	// quét toàn bộ: gom theo suất chiếu để giữ thứ tự khóa thống nhất với TryHold
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.ShowtimeSeat{}).
		Distinct("showtime_id").
		Where("status = ? AND expires_at <= ?", constants.SEAT_HELD, now).
		Pluck("showtime_id", &ids).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var total int64
	for _, id := range ids {
		n, err := s.sweepOne(ctx, id, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *GormStore) sweepOne(ctx context.Context, showtimeId uint, now time.Time) (int64, error) {
	var n int64
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		if err := lockShowtime(tx, showtimeId); err != nil && !errors.Is(err, ErrShowtimeNotFound) {
			return err
		}
		res := tx.Where("showtime_id = ? AND status = ? AND expires_at <= ?",
			showtimeId, constants.SEAT_HELD, now).
			Delete(&model.ShowtimeSeat{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(showtimeId)
	}
	return n, nil
}

func (s *GormStore) Snapshot(ctx context.Context, showtimeId uint) (*model.SeatMap, error) {
	var (
		m      *model.SeatMap
		purged int64
	)
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var st model.Showtime
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&st, showtimeId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShowtimeNotFound
			}
			return err
		}

		res := tx.Where("showtime_id = ? AND status = ? AND expires_at <= ?",
			showtimeId, constants.SEAT_HELD, time.Now()).
			Delete(&model.ShowtimeSeat{})
		if res.Error != nil {
			return res.Error
		}
		purged = res.RowsAffected

		var rows []model.ShowtimeSeat
		if err := tx.Where("showtime_id = ?", showtimeId).Order("seat").Find(&rows).Error; err != nil {
			return err
		}

		m = &model.SeatMap{
			ShowtimeId: showtimeId,
			Capacity:   st.Capacity(),
			Booked:     []string{},
			Held:       []string{},
		}
		for _, r := range rows {
			if r.Status == constants.SEAT_BOOKED {
				m.Booked = append(m.Booked, r.Seat)
			} else {
				m.Held = append(m.Held, r.Seat)
			}
		}
		m.AvailableCount = m.Capacity - len(m.Booked) - len(m.Held)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if purged > 0 {
		s.publish(showtimeId)
	}
	return m, nil
}
