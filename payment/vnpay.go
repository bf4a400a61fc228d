package payment

import (
	"crypto/sha512"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
)

// VNPay cổng thẻ/ngân hàng: HMAC-SHA512, số tiền nhân 100 theo quy ước VNPay
type VNPay struct {
	creds config.GatewayCreds
}

func NewVNPay(creds config.GatewayCreds) *VNPay {
	return &VNPay{creds: creds}
}

func (v *VNPay) Name() string { return constants.GATEWAY_VNPAY }

func (v *VNPay) BuildPaymentURL(ref string, amount int64, orderInfo, clientIP string, expire time.Time) (string, error) {
	params := url.Values{}
	params.Add("vnp_Version", "2.1.0")
	params.Add("vnp_Command", "pay")
	params.Add("vnp_TmnCode", v.creds.TmnCode)
	params.Add("vnp_Amount", strconv.FormatInt(amount*100, 10))
	params.Add("vnp_CreateDate", time.Now().Format(gatewayDateLayout))
	params.Add("vnp_CurrCode", "VND")
	params.Add("vnp_IpAddr", clientIP)
	params.Add("vnp_Locale", "vn")
	params.Add("vnp_OrderInfo", orderInfo)
	params.Add("vnp_OrderType", "other")
	params.Add("vnp_ReturnUrl", v.creds.ReturnURL)
	params.Add("vnp_TxnRef", ref)
	params.Add("vnp_ExpireDate", expire.Format(gatewayDateLayout))

	query := params.Encode()
	sig := signParams(sha512.New, v.creds.HashSecret, params)
	return v.creds.PayURL + "?" + query + "&vnp_SecureHash=" + sig, nil
}

// VerifyCallback dùng chung cho return URL và IPN: cùng bộ tham số vnp_,
// cùng chữ ký. Không sửa map của caller.
func (v *VNPay) VerifyCallback(params url.Values) CallbackResult {
	q := cloneValues(params)
	got := q.Get("vnp_SecureHash")
	q.Del("vnp_SecureHash")
	q.Del("vnp_SecureHashType")

	res := CallbackResult{
		OrderRef:      q.Get("vnp_TxnRef"),
		TransactionId: q.Get("vnp_TransactionNo"),
		Code:          q.Get("vnp_ResponseCode"),
	}
	if got == "" || !equalSignature(signParams(sha512.New, v.creds.HashSecret, q), got) {
		res.Message = constants.INVALID_SIGNATURE
		return res
	}
	res.Valid = true

	if raw := q.Get("vnp_Amount"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			res.Amount = n / 100
		}
	}
	if res.Code == "00" {
		res.Success = true
		res.Message = "Giao dịch thành công"
	} else {
		res.Message = vnpayDeclinedMessage(res.Code)
	}
	return res
}

// Diễn giải mã từ chối của VNPay cho người dùng
func vnpayDeclinedMessage(code string) string {
	switch code {
	case "07":
		return "Giao dịch bị nghi ngờ gian lận"
	case "09":
		return "Thẻ/Tài khoản chưa đăng ký InternetBanking"
	case "10":
		return "Xác thực thông tin thẻ sai quá 3 lần"
	case "11":
		return "Đã hết hạn chờ thanh toán"
	case "12":
		return "Thẻ/Tài khoản bị khóa"
	case "13":
		return "Sai mật khẩu OTP"
	case "24":
		return "Khách hàng hủy giao dịch"
	case "51":
		return "Tài khoản không đủ số dư"
	case "65":
		return "Vượt hạn mức giao dịch trong ngày"
	case "75":
		return "Ngân hàng thanh toán đang bảo trì"
	case "79":
		return "Sai mật khẩu thanh toán quá số lần quy định"
	default:
		return fmt.Sprintf("Giao dịch không thành công (mã %s)", code)
	}
}
