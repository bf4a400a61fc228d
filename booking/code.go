package booking

import (
	"crypto/rand"

	"cinema_booking/constants"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode sinh mã booking 8 ký tự hoa + số. Dùng rejection sampling:
// byte >= 252 (= 7 * 36) bị loại để 36 ký tự có xác suất bằng nhau.
func NewCode() string {
	out := make([]byte, constants.BOOKING_CODE_LENGTH)
	buf := make([]byte, 1)
	for i := 0; i < len(out); {
		if _, err := rand.Read(buf); err != nil {
			panic("nguồn entropy hệ thống không đọc được: " + err.Error())
		}
		if buf[0] >= byte(256-256%len(codeAlphabet)) {
			continue
		}
		out[i] = codeAlphabet[int(buf[0])%len(codeAlphabet)]
		i++
	}
	return string(out)
}
