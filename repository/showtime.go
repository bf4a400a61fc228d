package repository

import (
	"context"
	"errors"

	"cinema_booking/model"

	"gorm.io/gorm"
)

type Showtimes struct {
	db *gorm.DB
}

func NewShowtimes(db *gorm.DB) *Showtimes {
	return &Showtimes{db: db}
}

func (r *Showtimes) Get(ctx context.Context, id uint) (*model.Showtime, error) {
	var st model.Showtime
	if err := r.db.WithContext(ctx).Preload("Movie").First(&st, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}
