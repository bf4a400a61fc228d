package booking

import (
	"cinema_booking/model"

	"github.com/jinzhu/copier"
)

// NewView chuyển booking sang dạng trả cho client, kèm data URI ảnh QR
// nếu có (chỉ booking CONFIRMED mới có QR).
func NewView(b *model.Booking, qrData string) *model.BookingView {
	var v model.BookingView
	copier.Copy(&v, b)
	v.QRData = qrData
	return &v
}

// NewViews chuyển danh sách booking, không kèm QR (route danh sách)
func NewViews(bookings []model.Booking) []model.BookingView {
	views := make([]model.BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, *NewView(&bookings[i], ""))
	}
	return views
}
