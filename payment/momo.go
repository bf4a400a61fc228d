package payment

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
)

// MoMo cổng ví điện tử: cùng khung giao thức với VNPay nhưng ký
// HMAC-SHA256, số tiền giữ nguyên không nhân 100, mã thành công là "0"
type MoMo struct {
	creds config.GatewayCreds
}

func NewMoMo(creds config.GatewayCreds) *MoMo {
	return &MoMo{creds: creds}
}

func (m *MoMo) Name() string { return constants.GATEWAY_MOMO }

func (m *MoMo) BuildPaymentURL(ref string, amount int64, orderInfo, clientIP string, expire time.Time) (string, error) {
	params := url.Values{}
	params.Add("momo_PartnerCode", m.creds.TmnCode)
	params.Add("momo_Amount", strconv.FormatInt(amount, 10))
	params.Add("momo_CreateDate", time.Now().Format(gatewayDateLayout))
	params.Add("momo_ExpireDate", expire.Format(gatewayDateLayout))
	params.Add("momo_IpAddr", clientIP)
	params.Add("momo_OrderInfo", orderInfo)
	params.Add("momo_RequestType", "captureWallet")
	params.Add("momo_ReturnUrl", m.creds.ReturnURL)
	params.Add("momo_TxnRef", ref)

	query := params.Encode()
	sig := signParams(sha256.New, m.creds.HashSecret, params)
	return m.creds.PayURL + "?" + query + "&momo_Signature=" + sig, nil
}

func (m *MoMo) VerifyCallback(params url.Values) CallbackResult {
	q := cloneValues(params)
	got := q.Get("momo_Signature")
	q.Del("momo_Signature")

	res := CallbackResult{
		OrderRef:      q.Get("momo_TxnRef"),
		TransactionId: q.Get("momo_TransId"),
		Code:          q.Get("momo_ResultCode"),
	}
	if got == "" || !equalSignature(signParams(sha256.New, m.creds.HashSecret, q), got) {
		res.Message = constants.INVALID_SIGNATURE
		return res
	}
	res.Valid = true

	if raw := q.Get("momo_Amount"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			res.Amount = n
		}
	}
	if res.Code == "0" {
		res.Success = true
		res.Message = "Giao dịch thành công"
	} else {
		res.Message = momoDeclinedMessage(res.Code)
	}
	return res
}

func momoDeclinedMessage(code string) string {
	switch code {
	case "1001":
		return "Tài khoản ví không đủ số dư"
	case "1003":
		return "Giao dịch đã bị hủy"
	case "1004":
		return "Số tiền vượt hạn mức thanh toán"
	case "1005":
		return "Link thanh toán đã hết hạn"
	case "1006":
		return "Người dùng từ chối xác nhận thanh toán"
	default:
		return fmt.Sprintf("Thanh toán ví không thành công (mã %s)", code)
	}
}
