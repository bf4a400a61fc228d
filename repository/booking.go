package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"
	"cinema_booking/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Bookings truy cập bảng bookings. Các hàm đọc trả về (nil, nil) khi không
// tìm thấy; các hàm CAS trả về false khi bản ghi không còn ở trạng thái chờ.
type Bookings struct {
	db *gorm.DB
}

func NewBookings(db *gorm.DB) *Bookings {
	return &Bookings{db: db}
}

func (r *Bookings) Insert(ctx context.Context, b *model.Booking) error {
	err := r.db.WithContext(ctx).Create(b).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "code") {
		return ErrDuplicateCode
	}
	return err
}

func (r *Bookings) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Bookings) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// List trả về booking mới nhất trước; userId = 0 nghĩa là toàn bộ (admin)
func (r *Bookings) List(ctx context.Context, userId uint, p model.Pagination) ([]model.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Booking{})
	if userId != 0 {
		query = query.Where("user_id = ?", userId)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Booking
	err := utils.ApplyPagination(query.Order("created_at desc"), p.Limit, p.Page).Find(&rows).Error
	return rows, total, err
}

// CASStatus đổi trạng thái booking khi và chỉ khi đang ở from.
// Đây là điểm tuần tự hóa giữa Confirm, Cancel và sweeper.
func (r *Bookings) CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range patch {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *Bookings) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	var rows []model.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", constants.BOOKING_PENDING, before).
		Order("created_at").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkCheckedIn soát vé đúng một lần: chỉ thắng khi booking CONFIRMED và chưa soát
func (r *Bookings) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status = ? AND checked_in_at IS NULL", id, constants.BOOKING_CONFIRMED).
		Update("checked_in_at", at)
	return res.RowsAffected == 1, res.Error
}
