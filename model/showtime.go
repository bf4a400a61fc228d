package model

import (
	"strconv"
	"strings"
	"time"
)

type Showtime struct {
	DTO
	MovieId     uint      `json:"movieId"`
	Movie       Movie     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;foreignKey:MovieId" json:"movie"`
	Auditorium  string    `gorm:"size:50" json:"auditorium"`
	StartTime   time.Time `validate:"required" json:"startTime"`
	EndTime     time.Time `validate:"required" json:"endTime"`
	Price       int64     `gorm:"not null" json:"price"` // đồng / ghế
	SeatRows    string    `gorm:"size:30;default:ABCDEFGH" json:"seatRows"`
	SeatsPerRow int       `gorm:"default:10" json:"seatsPerRow"`
	Status      string    `gorm:"size:20;default:SCHEDULED" json:"status"`
}

func (s *Showtime) Capacity() int {
	return len(s.SeatRows) * s.SeatsPerRow
}

// ValidSeat kiểm tra nhãn ghế có nằm trong sơ đồ phòng không, vd "A1", "H10"
func (s *Showtime) ValidSeat(label string) bool {
	if len(label) < 2 {
		return false
	}
	if !strings.ContainsRune(s.SeatRows, rune(label[0])) {
		return false
	}
	n, err := strconv.Atoi(label[1:])
	return err == nil && n >= 1 && n <= s.SeatsPerRow
}
