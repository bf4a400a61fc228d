package repository

import (
	"context"
	"errors"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payments struct {
	db *gorm.DB
}

func NewPayments(db *gorm.DB) *Payments {
	return &Payments{db: db}
}

func (r *Payments) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Payments) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *Payments) GetByOrderRef(ctx context.Context, ref string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).First(&p, "order_ref = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// HasCompleted bảo vệ bất biến một booking chỉ có một giao dịch COMPLETED
func (r *Payments) HasCompleted(ctx context.Context, bookingId uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("booking_id = ? AND status = ?", bookingId, constants.PAYMENT_COMPLETED).
		Count(&count).Error
	return count > 0, err
}

// SupersedePending đánh FAILED mọi giao dịch PENDING của booking trước khi
// tạo intent mới (người dùng đổi phương thức thanh toán)
func (r *Payments) SupersedePending(ctx context.Context, bookingId uuid.UUID, msg string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("booking_id = ? AND status = ?", bookingId, constants.PAYMENT_PENDING).
		Updates(map[string]any{"status": constants.PAYMENT_FAILED, "message": msg})
	return res.RowsAffected, res.Error
}

// CASStatus chuyển trạng thái giao dịch khi và chỉ khi đang ở from. Callback
// trùng lặp hay tới đồng thời đều hội tụ qua đây: đúng một caller thắng.
func (r *Payments) CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range patch {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// FailStale dọn giao dịch PENDING bị bỏ rơi (cổng không bao giờ gọi lại)
func (r *Payments) FailStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("status = ? AND created_at < ?", constants.PAYMENT_PENDING, before).
		Updates(map[string]any{"status": constants.PAYMENT_FAILED, "message": "quá hạn chờ cổng thanh toán"})
	return res.RowsAffected, res.Error
}
