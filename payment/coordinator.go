package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"cinema_booking/booking"
	"cinema_booking/constants"
	"cinema_booking/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrGatewayUnknown    = errors.New("unsupported payment gateway")
	ErrBookingNotFound   = errors.New("booking not found for payment")
	ErrBookingNotPending = errors.New("booking no longer pending")
	ErrAlreadyPaid       = errors.New("booking already has a completed payment")
	ErrInvalidTransition = errors.New("invalid payment state transition")
)

// Repository là phần bảng payments mà coordinator cần
type Repository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByOrderRef(ctx context.Context, ref string) (*model.Payment, error)
	HasCompleted(ctx context.Context, bookingId uuid.UUID) (bool, error)
	SupersedePending(ctx context.Context, bookingId uuid.UUID, msg string) (int64, error)
	CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}

// Engine là phần BookingEngine mà coordinator điều khiển
type Engine interface {
	Confirm(ctx context.Context, id uuid.UUID, pay *model.Payment) (*model.Booking, error)
	CancelIfPending(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}

// Source nơi callback đến: return = trình duyệt người dùng, ipn = máy chủ cổng
type Source string

const (
	SourceReturn Source = "return"
	SourceIPN    Source = "ipn"
)

// Outcome kết quả xử lý một callback. RedirectURL chỉ có với source
// return, Ack chỉ có với source ipn.
type Outcome struct {
	Success     bool
	BookingId   uuid.UUID
	Code        string
	Message     string
	RedirectURL string
	Ack         *IPNAck
}

// Coordinator giữ bản ghi payment làm khóa chống trùng: return và IPN của
// cùng một giao dịch đều hội tụ về CAS trên status, đúng một bên thắng.
type Coordinator struct {
	gateways    map[string]Gateway
	payments    Repository
	bookings    BookingReader
	engine      Engine
	frontendURL string
	intentTTL   time.Duration
}

func NewCoordinator(payments Repository, bookings BookingReader, engine Engine, frontendURL string, intentTTL time.Duration, gateways ...Gateway) *Coordinator {
	byName := make(map[string]Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &Coordinator{
		gateways:    byName,
		payments:    payments,
		bookings:    bookings,
		engine:      engine,
		frontendURL: frontendURL,
		intentTTL:   intentTTL,
	}
}

// CreateIntent tạo giao dịch PENDING và URL chuyển hướng sang cổng.
// Intent PENDING cũ của cùng booking bị đánh FAILED trước khi tạo cái mới,
// nên mỗi booking chỉ có tối đa một giao dịch đang sống.
func (co *Coordinator) CreateIntent(ctx context.Context, gatewayName string, bookingId uuid.UUID, clientIP string) (*model.Payment, string, error) {
	gw, ok := co.gateways[gatewayName]
	if !ok {
		return nil, "", ErrGatewayUnknown
	}

	b, err := co.bookings.GetByID(ctx, bookingId)
	if err != nil {
		return nil, "", err
	}
	if b == nil {
		return nil, "", ErrBookingNotFound
	}
	if b.Status != constants.BOOKING_PENDING {
		return nil, "", ErrBookingNotPending
	}
	done, err := co.payments.HasCompleted(ctx, b.ID)
	if err != nil {
		return nil, "", err
	}
	if done {
		return nil, "", ErrAlreadyPaid
	}

	superseded, err := co.payments.SupersedePending(ctx, b.ID, "Bị thay thế bởi lượt thanh toán mới")
	if err != nil {
		return nil, "", err
	}
	if superseded > 0 {
		log.Printf("booking %s: đánh FAILED %d intent treo trước khi tạo intent mới", b.Code, superseded)
	}

	p := &model.Payment{
		ID:        uuid.New(),
		BookingId: b.ID,
		Amount:    b.TotalPrice, // số tiền theo giá đã chốt của booking
		Method:    gw.Name(),
		OrderRef:  NewOrderRef(b.ID),
		Status:    constants.PAYMENT_PENDING,
	}
	// Hạn bên cổng bằng TTL giữ ghế: cổng không thể báo thành công
	// sau khi hold đã rơi
	expire := time.Now().Add(co.intentTTL)
	redirect, err := gw.BuildPaymentURL(p.OrderRef, p.Amount, "Thanh toan ve xem phim "+b.Code, clientIP, expire)
	if err != nil {
		return nil, "", fmt.Errorf("dựng URL thanh toán: %w", err)
	}
	if err := co.payments.Create(ctx, p); err != nil {
		return nil, "", err
	}
	return p, redirect, nil
}

// HandleCallback xử lý cả hai đường callback theo cùng một trình tự:
// xác minh chữ ký, tìm giao dịch, chặn lặp, rồi CAS và điều khiển engine.
func (co *Coordinator) HandleCallback(ctx context.Context, gatewayName string, source Source, params url.Values) Outcome {
	gw, ok := co.gateways[gatewayName]
	if !ok {
		return co.finish(source, Outcome{Message: "Cổng thanh toán không được hỗ trợ"}, AckUnknownError, "Unknown gateway")
	}

	res := gw.VerifyCallback(params)
	if !res.Valid {
		// Chữ ký sai thì không được đụng vào bất kỳ trạng thái nào
		return co.finish(source, Outcome{Code: res.Code, Message: constants.INVALID_SIGNATURE}, AckInvalidSignature, "Invalid signature")
	}

	bookingId, err := ParseOrderRef(res.OrderRef)
	if err != nil {
		return co.finish(source, Outcome{Code: res.Code, Message: constants.PAYMENT_NOT_FOUND}, AckOrderNotFound, "Order not found")
	}
	out := Outcome{BookingId: bookingId, Code: res.Code, Message: res.Message}

	p, err := co.payments.GetByOrderRef(ctx, res.OrderRef)
	if err != nil {
		out.Message = constants.ERROR_INTERNAL_ERROR
		return co.finish(source, out, AckUnknownError, "Storage error")
	}
	if p == nil {
		out.Message = constants.PAYMENT_NOT_FOUND
		return co.finish(source, out, AckOrderNotFound, "Order not found")
	}
	if res.Amount > 0 && res.Amount != p.Amount {
		// Tham số bị sửa nhưng chữ ký hợp lệ chỉ xảy ra khi replay bản
		// tin của giao dịch khác, từ chối không đổi trạng thái
		out.Message = "Số tiền không khớp với giao dịch"
		return co.finish(source, out, AckInvalidAmount, "Invalid amount")
	}

	// Callback lặp: giao dịch đã chốt thì trả đúng kết quả cũ
	switch p.Status {
	case constants.PAYMENT_COMPLETED:
		out.Success = true
		out.Message = "Giao dịch thành công"
		co.ensureConfirmed(ctx, p)
		return co.finish(source, out, AckAlreadyProcessed, "Order already confirmed")
	case constants.PAYMENT_FAILED, constants.PAYMENT_REFUNDED:
		if p.Message != "" {
			out.Message = p.Message
		}
		return co.finish(source, out, AckAlreadyProcessed, "Order already processed")
	}

	if res.Success {
		return co.applySuccess(ctx, source, p, res, out)
	}
	return co.applyFailure(ctx, source, p, res, out)
}

func (co *Coordinator) applySuccess(ctx context.Context, source Source, p *model.Payment, res CallbackResult, out Outcome) Outcome {
	now := time.Now()
	won, err := co.payments.CASStatus(ctx, p.ID, constants.PAYMENT_PENDING, constants.PAYMENT_COMPLETED, map[string]any{
		"paid_at":        now,
		"transaction_id": res.TransactionId,
		"message":        res.Message,
	})
	if err != nil {
		out.Message = constants.ERROR_INTERNAL_ERROR
		return co.finish(source, out, AckUnknownError, "Storage error")
	}
	if !won {
		// Thua CAS với callback song song, đọc lại xem bên thắng chốt gì
		cur, err := co.payments.GetByID(ctx, p.ID)
		if err != nil || cur == nil {
			out.Message = constants.ERROR_INTERNAL_ERROR
			return co.finish(source, out, AckUnknownError, "Storage error")
		}
		out.Success = cur.Status == constants.PAYMENT_COMPLETED
		if out.Success {
			out.Message = "Giao dịch thành công"
		} else if cur.Message != "" {
			out.Message = cur.Message
		}
		return co.finish(source, out, AckAlreadyProcessed, "Order already processed")
	}

	p.Status = constants.PAYMENT_COMPLETED
	p.PaidAt = &now
	p.TransactionId = res.TransactionId

	if _, err := co.engine.Confirm(ctx, p.BookingId, p); err != nil {
		if errors.Is(err, booking.ErrInvalidTransition) {
			// Tiền đã trừ nhưng booking bị hủy trước đó (vd sweeper vừa
			// quét): ghế có thể đã bán lại, chỉ còn cách hoàn tiền
			if _, casErr := co.payments.CASStatus(ctx, p.ID, constants.PAYMENT_COMPLETED, constants.PAYMENT_REFUNDED, map[string]any{
				"message": "Hoàn tiền: booking đã hủy trước khi thanh toán về",
			}); casErr != nil {
				log.Printf("không đánh dấu hoàn tiền payment %s: %v", p.ID, casErr)
			}
			out.Success = false
			out.Message = "Booking đã hủy trước khi thanh toán hoàn tất, tiền sẽ được hoàn lại"
			return co.finish(source, out, AckOK, "Confirm success")
		}
		// Payment đã COMPLETED, lượt callback sau vá nốt qua ensureConfirmed
		log.Printf("confirm booking %s sau thanh toán thất bại: %v", p.BookingId, err)
		out.Message = constants.ERROR_INTERNAL_ERROR
		return co.finish(source, out, AckUnknownError, "Confirm failed, retry")
	}

	out.Success = true
	out.Message = "Giao dịch thành công"
	return co.finish(source, out, AckOK, "Confirm success")
}

func (co *Coordinator) applyFailure(ctx context.Context, source Source, p *model.Payment, res CallbackResult, out Outcome) Outcome {
	won, err := co.payments.CASStatus(ctx, p.ID, constants.PAYMENT_PENDING, constants.PAYMENT_FAILED, map[string]any{
		"transaction_id": res.TransactionId,
		"message":        res.Message,
	})
	if err != nil {
		out.Message = constants.ERROR_INTERNAL_ERROR
		return co.finish(source, out, AckUnknownError, "Storage error")
	}
	if !won {
		cur, err := co.payments.GetByID(ctx, p.ID)
		if err == nil && cur != nil && cur.Status == constants.PAYMENT_COMPLETED {
			out.Success = true
			out.Message = "Giao dịch thành công"
			return co.finish(source, out, AckAlreadyProcessed, "Order already confirmed")
		}
		return co.finish(source, out, AckAlreadyProcessed, "Order already processed")
	}

	// Trả ghế ngay cho người khác đặt thay vì chờ sweeper; booking đã
	// CONFIRMED nhờ lượt thanh toán khác thì giữ nguyên
	if _, err := co.engine.CancelIfPending(ctx, p.BookingId); err != nil && !errors.Is(err, booking.ErrInvalidTransition) {
		log.Printf("hủy booking %s sau khi cổng từ chối thất bại: %v", p.BookingId, err)
	}
	return co.finish(source, out, AckOK, "Confirm success")
}

// ensureConfirmed vá khe hở nếu tiến trình chết giữa CAS payment và
// Confirm booking: callback lặp lại sẽ kéo booking về đúng trạng thái.
// Confirm idempotent nên gọi thừa vô hại.
func (co *Coordinator) ensureConfirmed(ctx context.Context, p *model.Payment) {
	b, err := co.bookings.GetByID(ctx, p.BookingId)
	if err != nil || b == nil || b.Status != constants.BOOKING_PENDING {
		return
	}
	if _, err := co.engine.Confirm(ctx, p.BookingId, p); err != nil {
		log.Printf("xác nhận lại booking %s từ payment %s thất bại: %v", p.BookingId, p.ID, err)
	}
}

// Refund chỉ đi từ COMPLETED, kéo theo hủy booking và trả ghế đã bán.
// Gọi lại trên payment đã REFUNDED là vô hại và sẽ vá nốt phần hủy
// booking nếu lần trước dở dang.
func (co *Coordinator) Refund(ctx context.Context, paymentId uuid.UUID) (*model.Payment, error) {
	p, err := co.payments.GetByID(ctx, paymentId)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	switch p.Status {
	case constants.PAYMENT_REFUNDED:
		if _, err := co.engine.Cancel(ctx, p.BookingId); err != nil && !errors.Is(err, booking.ErrNotFound) {
			return nil, err
		}
		return p, nil
	case constants.PAYMENT_COMPLETED:
	default:
		return nil, ErrInvalidTransition
	}

	won, err := co.payments.CASStatus(ctx, p.ID, constants.PAYMENT_COMPLETED, constants.PAYMENT_REFUNDED, map[string]any{
		"message": "Hoàn tiền theo yêu cầu quản trị viên",
	})
	if err != nil {
		return nil, err
	}
	if !won {
		cur, err := co.payments.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.Status != constants.PAYMENT_REFUNDED {
			return nil, ErrInvalidTransition
		}
		p = cur
	} else {
		p.Status = constants.PAYMENT_REFUNDED
	}

	if _, err := co.engine.Cancel(ctx, p.BookingId); err != nil {
		return nil, fmt.Errorf("payment đã REFUNDED nhưng hủy booking chưa xong, gọi lại để hoàn tất: %w", err)
	}
	return p, nil
}

func (co *Coordinator) finish(source Source, out Outcome, rspCode, ackMsg string) Outcome {
	if source == SourceIPN {
		out.Ack = &IPNAck{RspCode: rspCode, Message: ackMsg}
		return out
	}
	if out.Success {
		out.RedirectURL = fmt.Sprintf("%s/payment/success?bookingId=%s", co.frontendURL, out.BookingId)
	} else {
		out.RedirectURL = fmt.Sprintf("%s/payment/failed?message=%s", co.frontendURL, url.QueryEscape(out.Message))
	}
	return out
}
