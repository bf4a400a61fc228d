package booking_test

import (
	"encoding/json"
	"testing"
	"time"

	"cinema_booking/booking"
	"cinema_booking/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() model.QRPayload {
	return model.QRPayload{
		BookingId:   uuid.NewString(),
		BookingCode: "A1B2C3D4",
		UserId:      7,
		ShowtimeId:  1,
		Seats:       []string{"A1", "A2"},
		TotalPrice:  180000,
		Timestamp:   time.Now().Unix(),
	}
}

func TestParseQRPayload(t *testing.T) {
	p := validPayload()
	data, err := json.Marshal(p)
	require.NoError(t, err)

	got, err := booking.ParseQRPayload(string(data))
	require.NoError(t, err)
	assert.Equal(t, p.BookingId, got.BookingId)
	assert.Equal(t, p.BookingCode, got.BookingCode)
	assert.Equal(t, p.Seats, got.Seats)
}

func TestParseQRPayload_Rejects(t *testing.T) {
	cases := map[string]func(p *model.QRPayload){
		"bookingId không phải uuid": func(p *model.QRPayload) { p.BookingId = "abc" },
		"thiếu bookingCode":         func(p *model.QRPayload) { p.BookingCode = "" },
		"thiếu timestamp":           func(p *model.QRPayload) { p.Timestamp = 0 },
		"quá hạn 30 ngày":           func(p *model.QRPayload) { p.Timestamp = time.Now().AddDate(0, 0, -31).Unix() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validPayload()
			mutate(&p)
			data, err := json.Marshal(p)
			require.NoError(t, err)
			_, err = booking.ParseQRPayload(string(data))
			assert.ErrorIs(t, err, booking.ErrInvalidQR)
		})
	}

	_, err := booking.ParseQRPayload("{broken")
	assert.ErrorIs(t, err, booking.ErrInvalidQR)
}

func TestParseQRPayload_AcceptsRecentTicket(t *testing.T) {
	p := validPayload()
	p.Timestamp = time.Now().AddDate(0, 0, -29).Unix()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	_, err = booking.ParseQRPayload(string(data))
	assert.NoError(t, err)
}
