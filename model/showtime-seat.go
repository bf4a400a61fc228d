package model

import (
	"time"

	"github.com/google/uuid"
)

// ShowtimeSeat một ghế đang được giữ hoặc đã bán trong một suất chiếu.
// Ghế trống không có bản ghi.
type ShowtimeSeat struct {
	DTO
	ShowtimeId uint       `gorm:"not null;uniqueIndex:idx_showtime_seat" json:"showtimeId"`
	Seat       string     `gorm:"size:8;not null;uniqueIndex:idx_showtime_seat" json:"seat"`
	Status     string     `gorm:"size:10;not null" json:"status"` // HELD, BOOKED
	BookingId  uuid.UUID  `gorm:"type:uuid;index" json:"bookingId"`
	UserId     uint       `json:"userId"`
	ExpiresAt  *time.Time `gorm:"index" json:"expiresAt"` // null khi đã BOOKED
}

// SeatMap trạng thái ghế của một suất chiếu trả về cho client
type SeatMap struct {
	ShowtimeId     uint     `json:"showtimeId"`
	Capacity       int      `json:"capacity"`
	AvailableCount int      `json:"availableCount"`
	Booked         []string `json:"booked"`
	Held           []string `json:"held"`
}
