package config_test

import (
	"testing"
	"time"

	"cinema_booking/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearBookingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "FRONTEND_URL",
		"HOLD_TTL_SECONDS", "BOOKING_EXPIRY_SECONDS",
		"SWEEP_INTERVAL_SECONDS", "HOLD_SWEEP_INTERVAL_SECONDS",
		"VNP_TMN_CODE", "VNP_HASH_SECRET", "VNP_URL", "VNP_RETURN_URL",
		"MOMO_TMN_CODE", "MOMO_HASH_SECRET", "MOMO_URL", "MOMO_RETURN_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearBookingEnv(t)

	s, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8002", s.Port)
	assert.Equal(t, "http://localhost:5173", s.FrontendURL)
	assert.Equal(t, 10*time.Minute, s.HoldTTL)
	assert.Equal(t, 15*time.Minute, s.BookingExpiry)
	assert.Equal(t, 5*time.Minute, s.SweepInterval)
	assert.Equal(t, 10*time.Minute, s.HoldSweepInterval)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	clearBookingEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("HOLD_TTL_SECONDS", "120")
	t.Setenv("BOOKING_EXPIRY_SECONDS", "300")
	t.Setenv("VNP_TMN_CODE", "CINEMA01")
	t.Setenv("VNP_HASH_SECRET", "bi-mat")
	t.Setenv("VNP_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	t.Setenv("VNP_RETURN_URL", "http://localhost:9000/payments/vnpay-return")

	s, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", s.Port)
	assert.Equal(t, 2*time.Minute, s.HoldTTL)
	assert.Equal(t, 5*time.Minute, s.BookingExpiry)
	assert.Equal(t, "CINEMA01", s.VNPay.TmnCode)
	assert.Equal(t, "bi-mat", s.VNPay.HashSecret)
}

func TestLoad_RejectsBadDurations(t *testing.T) {
	for _, raw := range []string{"abc", "-5", "0"} {
		t.Run(raw, func(t *testing.T) {
			clearBookingEnv(t)
			t.Setenv("HOLD_TTL_SECONDS", raw)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsExpiryShorterThanHold(t *testing.T) {
	clearBookingEnv(t)
	// Booking tự hủy trước khi hold rơi thì ghế bị kẹt vô nghĩa
	t.Setenv("HOLD_TTL_SECONDS", "600")
	t.Setenv("BOOKING_EXPIRY_SECONDS", "300")

	_, err := config.Load()
	assert.Error(t, err)
}
