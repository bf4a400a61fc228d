package repository

import "errors"

var (
	// ErrDuplicateCode đụng unique index bookings.code, caller sinh mã khác rồi thử lại
	ErrDuplicateCode = errors.New("booking code already exists")
)
