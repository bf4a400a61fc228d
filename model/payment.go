package model

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingId     uuid.UUID  `gorm:"type:uuid;index" json:"bookingId"`
	Amount        int64      `gorm:"not null" json:"amount"`         // đồng
	Method        string     `gorm:"size:10;not null" json:"method"` // vnpay, momo
	OrderRef      string     `gorm:"size:64;uniqueIndex" json:"orderRef"`
	TransactionId string     `gorm:"index" json:"transactionId"`
	Status        string     `gorm:"size:12;default:PENDING" json:"status"`
	Message       string     `json:"message"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type CreatePaymentInput struct {
	BookingId string `json:"bookingId" validate:"required,uuid"`
}
