package model

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code       string    `gorm:"size:8;uniqueIndex" json:"code"`
	UserId     uint      `gorm:"index:idx_bookings_user_created,priority:1" json:"userId"`
	ShowtimeId uint      `gorm:"index" json:"showtimeId"`
	Seats      []string  `gorm:"serializer:json" json:"seats"`
	TotalPrice int64     `json:"totalPrice"` // chốt tại thời điểm đặt
	Status     string    `gorm:"size:12;default:PENDING;index:idx_bookings_status_created,priority:1" json:"status"`

	// Thông tin suất chiếu chụp lại lúc đặt, còn nguyên nếu suất chiếu bị xóa
	MovieTitle    string    `json:"movieTitle"`
	Auditorium    string    `json:"auditorium"`
	ShowtimeStart time.Time `json:"showtimeStart"`

	PaymentId     *uuid.UUID `gorm:"type:uuid" json:"paymentId,omitempty"`
	PaymentMethod string     `gorm:"size:10" json:"paymentMethod"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	CreatedAt     time.Time  `gorm:"index:idx_bookings_user_created,priority:2,sort:desc;index:idx_bookings_status_created,priority:2" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type CreateBookingInput struct {
	ShowtimeId uint     `json:"showtimeId" validate:"required,gt=0"`
	Seats      []string `json:"seats" validate:"required,min=1,max=8,dive,required"`
}

type VerifyQRInput struct {
	Data string `json:"data" validate:"required"`
}

// QRPayload nội dung JSON mã hóa trong QR của vé
type QRPayload struct {
	BookingId   string   `json:"bookingId"`
	BookingCode string   `json:"bookingCode"`
	UserId      uint     `json:"userId"`
	ShowtimeId  uint     `json:"showtimeId"`
	Seats       []string `json:"seats"`
	TotalPrice  int64    `json:"totalPrice"`
	Timestamp   int64    `json:"timestamp"`
}

// QRPayload sinh nội dung QR soát vé. Timestamp lấy lúc thanh toán để
// cửa kiểm soát tính được hạn hiệu lực của mã.
func (b *Booking) QRPayload() QRPayload {
	ts := b.CreatedAt
	if b.PaidAt != nil {
		ts = *b.PaidAt
	}
	return QRPayload{
		BookingId:   b.ID.String(),
		BookingCode: b.Code,
		UserId:      b.UserId,
		ShowtimeId:  b.ShowtimeId,
		Seats:       b.Seats,
		TotalPrice:  b.TotalPrice,
		Timestamp:   ts.Unix(),
	}
}

// BookingView booking kèm dữ liệu hiển thị cho client
type BookingView struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	Status        string     `json:"status"`
	MovieTitle    string     `json:"movieTitle"`
	Auditorium    string     `json:"auditorium"`
	ShowtimeStart time.Time  `json:"showtimeStart"`
	ShowtimeId    uint       `json:"showtimeId"`
	Seats         []string   `json:"seats"`
	TotalPrice    int64      `json:"totalPrice"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	QRData        string     `json:"qrData,omitempty"` // data URI ảnh QR, chỉ có ở booking CONFIRMED
}
