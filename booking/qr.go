package booking

import (
	"encoding/json"
	"fmt"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"github.com/google/uuid"
)

// ParseQRPayload đọc nội dung quét từ QR vé. Mã chỉ có hiệu lực trong
// QR_VALID_DAYS ngày kể từ timestamp in trong vé.
func ParseQRPayload(data string) (*model.QRPayload, error) {
	var p model.QRPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}
	if _, err := uuid.Parse(p.BookingId); err != nil {
		return nil, fmt.Errorf("%w: bookingId không phải uuid", ErrInvalidQR)
	}
	if p.BookingCode == "" || p.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: thiếu trường bắt buộc", ErrInvalidQR)
	}
	issued := time.Unix(p.Timestamp, 0)
	if time.Since(issued) > constants.QR_VALID_DAYS*24*time.Hour {
		return nil, fmt.Errorf("%w: quá %d ngày", ErrInvalidQR, constants.QR_VALID_DAYS)
	}
	return &p, nil
}
