package booking

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrShowtimeNotFound  = errors.New("showtime not found")
	ErrSeatInvalid       = errors.New("seat not in auditorium layout")
	ErrDuplicateSeat     = errors.New("duplicate seat in request")
	ErrTooManySeats      = errors.New("seat list exceeds per-booking limit")
	ErrShowtimeStarted   = errors.New("showtime already started")
	ErrCodeExhausted     = errors.New("booking code collisions exhausted retries")
	ErrInvalidTransition = errors.New("invalid booking state transition")
	ErrNotOwner          = errors.New("caller does not own this booking")
	ErrExpired           = errors.New("booking holds already expired")
	ErrInvalidQR         = errors.New("qr payload invalid or expired")
	ErrAlreadyCheckedIn  = errors.New("ticket already checked in")
)

// SeatConflictError mang theo danh sách ghế bị tranh chấp để client
// highlight đúng ghế trên sơ đồ.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return "seats unavailable: " + strings.Join(e.Seats, ", ")
}
