package booking_test

import (
	"strings"
	"testing"

	"cinema_booking/booking"
	"cinema_booking/constants"

	"github.com/stretchr/testify/assert"
)

func TestNewCode(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := booking.NewCode()
		assert.Len(t, code, constants.BOOKING_CODE_LENGTH)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(alphabet, c), "ký tự lạ %q trong mã %s", c, code)
		}
		seen[code] = true
	}
	// 36^8 tổ hợp, 200 mã trùng nhau là gần như không thể
	assert.Greater(t, len(seen), 195)
}
