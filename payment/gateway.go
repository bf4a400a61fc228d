// Package payment nối BookingEngine với các cổng thanh toán bên ngoài.
// Callback từ cổng có thể trùng lặp, đến sai thứ tự hoặc bị giả mạo;
// hàng rào là chữ ký HMAC và CAS trên cột status của bản ghi payment.
package payment

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layout ngày giờ chung của các cổng (yyyyMMddHHmmss)
const gatewayDateLayout = "20060102150405"

// Gateway là một cổng thanh toán: dựng URL chuyển hướng có chữ ký và
// xác minh callback quay về.
type Gateway interface {
	Name() string
	BuildPaymentURL(ref string, amount int64, orderInfo, clientIP string, expire time.Time) (string, error)
	VerifyCallback(params url.Values) CallbackResult
}

// CallbackResult kết quả đọc một callback. Valid=false nghĩa là chữ ký
// sai, mọi trường khác chỉ mang tính chẩn đoán và không được dùng để
// đổi trạng thái.
type CallbackResult struct {
	Valid         bool
	Success       bool
	OrderRef      string
	TransactionId string
	Amount        int64 // đồng, đã quy về đơn vị gốc; 0 nếu cổng không gửi
	Code          string
	Message       string
}

// IPNAck thân response cổng mong nhận được ở endpoint IPN
type IPNAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Mã ack IPN theo quy ước VNPay
const (
	AckOK               = "00"
	AckOrderNotFound    = "01"
	AckAlreadyProcessed = "02"
	AckInvalidAmount    = "04"
	AckInvalidSignature = "97"
	AckUnknownError     = "99"
)

// NewOrderRef sinh mã tham chiếu gửi cho cổng: uuid booking + mili giây,
// mỗi lượt thanh toán một mã riêng
func NewOrderRef(bookingId uuid.UUID) string {
	return fmt.Sprintf("%s-%d", bookingId, time.Now().UnixMilli())
}

// ParseOrderRef tách uuid booking khỏi mã tham chiếu. UUID tự chứa dấu
// gạch nên phải cắt ở dấu gạch CUỐI.
func ParseOrderRef(ref string) (uuid.UUID, error) {
	i := strings.LastIndex(ref, "-")
	if i <= 0 {
		return uuid.Nil, fmt.Errorf("mã tham chiếu %q không đúng định dạng", ref)
	}
	id, err := uuid.Parse(ref[:i])
	if err != nil {
		return uuid.Nil, fmt.Errorf("mã tham chiếu %q không chứa uuid: %w", ref, err)
	}
	return id, nil
}

// signParams ký chuỗi query đã sort theo alphabet (url.Values.Encode tự
// sort key) bằng HMAC, trả về hex thường
func signParams(newHash func() hash.Hash, secret string, params url.Values) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// equalSignature so sánh thời gian không đổi, chặn dò chữ ký theo timing
func equalSignature(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func cloneValues(src url.Values) url.Values {
	dst := make(url.Values, len(src))
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
	return dst
}
