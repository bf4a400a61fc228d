package payment_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"cinema_booking/booking"
	"cinema_booking/constants"
	"cinema_booking/model"
	"cinema_booking/payment"
	"cinema_booking/repository"
	"cinema_booking/seatstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBookingRepo bảng bookings trong bộ nhớ, dùng chung cho engine và coordinator
type fakeBookingRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*model.Booking
	codes map[string]bool
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{rows: make(map[uuid.UUID]*model.Booking), codes: make(map[string]bool)}
}

func (r *fakeBookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codes[b.Code] {
		return repository.ErrDuplicateCode
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.rows[b.ID] = &cp
	r.codes[b.Code] = true
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	for k, v := range patch {
		switch k {
		case "paid_at":
			t := v.(time.Time)
			b.PaidAt = &t
		case "cancelled_at":
			t := v.(time.Time)
			b.CancelledAt = &t
		case "payment_id":
			pid := v.(uuid.UUID)
			b.PaymentId = &pid
		case "payment_method":
			b.PaymentMethod = v.(string)
		}
	}
	return true, nil
}

func (r *fakeBookingRepo) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok || b.Status != constants.BOOKING_CONFIRMED || b.CheckedInAt != nil {
		return false, nil
	}
	b.CheckedInAt = &at
	return true, nil
}

func (r *fakeBookingRepo) status(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.rows[id]; ok {
		return b.Status
	}
	return ""
}

// fakePayments bảng payments trong bộ nhớ với CAS giống repository thật
type fakePayments struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{rows: make(map[uuid.UUID]*model.Payment)}
}

func (r *fakePayments) Create(ctx context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.CreatedAt = time.Now()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *fakePayments) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePayments) GetByOrderRef(ctx context.Context, ref string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.OrderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePayments) HasCompleted(ctx context.Context, bookingId uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.BookingId == bookingId && p.Status == constants.PAYMENT_COMPLETED {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePayments) SupersedePending(ctx context.Context, bookingId uuid.UUID, msg string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.rows {
		if p.BookingId == bookingId && p.Status == constants.PAYMENT_PENDING {
			p.Status = constants.PAYMENT_FAILED
			p.Message = msg
			n++
		}
	}
	return n, nil
}

func (r *fakePayments) CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	for k, v := range patch {
		switch k {
		case "paid_at":
			t := v.(time.Time)
			p.PaidAt = &t
		case "transaction_id":
			p.TransactionId = v.(string)
		case "message":
			p.Message = v.(string)
		}
	}
	return true, nil
}

func (r *fakePayments) setStatus(id uuid.UUID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		p.Status = status
	}
}

func (r *fakePayments) status(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok {
		return p.Status
	}
	return ""
}

type fakeShowtimes struct {
	rows map[uint]*model.Showtime
}

func (s *fakeShowtimes) Get(ctx context.Context, id uint) (*model.Showtime, error) {
	st, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func testShowtime(id uint) *model.Showtime {
	st := &model.Showtime{
		Movie:       model.Movie{Title: "Mai"},
		Auditorium:  "Phòng 1",
		StartTime:   time.Now().Add(2 * time.Hour),
		EndTime:     time.Now().Add(4 * time.Hour),
		Price:       90000,
		SeatRows:    "ABCDEFGH",
		SeatsPerRow: 10,
	}
	st.ID = id
	return st
}

type coordEnv struct {
	co       *payment.Coordinator
	eng      *booking.Engine
	payments *fakePayments
	bookings *fakeBookingRepo
	store    *seatstore.MemoryStore
}

func newCoordEnv(t *testing.T) *coordEnv {
	t.Helper()
	store := seatstore.NewMemoryStore(nil)
	store.AddShowtime(1, 80)
	bookings := newFakeBookingRepo()
	shows := &fakeShowtimes{rows: map[uint]*model.Showtime{1: testShowtime(1)}}
	eng := booking.NewEngine(store, bookings, shows, nil, time.Minute)
	payments := newFakePayments()
	co := payment.NewCoordinator(payments, bookings, eng, "http://localhost:5173", 10*time.Minute,
		payment.NewVNPay(testCreds), payment.NewMoMo(testCreds))
	return &coordEnv{co: co, eng: eng, payments: payments, bookings: bookings, store: store}
}

// pendingBooking tạo booking PENDING 2 ghế, tổng 180000đ
func (env *coordEnv) pendingBooking(t *testing.T, seats ...string) *model.Booking {
	t.Helper()
	if len(seats) == 0 {
		seats = []string{"A1", "A2"}
	}
	b, err := env.eng.Create(context.Background(), 7, &model.CreateBookingInput{ShowtimeId: 1, Seats: seats})
	require.NoError(t, err)
	return b
}

func TestCreateIntent(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, redirect, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, constants.PAYMENT_PENDING, p.Status)
	assert.Equal(t, b.TotalPrice, p.Amount)
	assert.Equal(t, constants.GATEWAY_VNPAY, p.Method)
	assert.True(t, strings.HasPrefix(p.OrderRef, b.ID.String()+"-"))

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, p.OrderRef, u.Query().Get("vnp_TxnRef"))
	assert.Equal(t, "18000000", u.Query().Get("vnp_Amount"))
}

func TestCreateIntent_Rejects(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	_, _, err := env.co.CreateIntent(ctx, "zalopay", b.ID, "")
	assert.ErrorIs(t, err, payment.ErrGatewayUnknown)

	_, _, err = env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, uuid.New(), "")
	assert.ErrorIs(t, err, payment.ErrBookingNotFound)

	_, err = env.eng.Confirm(ctx, b.ID, nil)
	require.NoError(t, err)
	_, _, err = env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	assert.ErrorIs(t, err, payment.ErrBookingNotPending)
}

func TestCreateIntent_RejectsAlreadyPaid(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)
	env.payments.setStatus(p.ID, constants.PAYMENT_COMPLETED)

	_, _, err = env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	assert.ErrorIs(t, err, payment.ErrAlreadyPaid)
}

func TestCreateIntent_SupersedesPendingIntent(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	first, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)
	second, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_MOMO, b.ID, "")
	require.NoError(t, err)

	// Mỗi booking tối đa một giao dịch đang sống
	assert.Equal(t, constants.PAYMENT_FAILED, env.payments.status(first.ID))
	assert.Equal(t, constants.PAYMENT_PENDING, env.payments.status(second.ID))

	// Callback muộn của intent cũ không lật được kết quả
	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(first.OrderRef, first.Amount, "00"))
	require.NotNil(t, out.Ack)
	assert.Equal(t, payment.AckAlreadyProcessed, out.Ack.RspCode)
	assert.Equal(t, constants.PAYMENT_FAILED, env.payments.status(first.ID))
}

func TestHandleCallback_SuccessConfirmsBooking(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount, "00"))

	assert.True(t, out.Success)
	require.NotNil(t, out.Ack)
	assert.Equal(t, payment.AckOK, out.Ack.RspCode)

	paid, err := env.payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.PAYMENT_COMPLETED, paid.Status)
	assert.Equal(t, "14422574", paid.TransactionId)
	assert.NotNil(t, paid.PaidAt)

	confirmed, err := env.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BOOKING_CONFIRMED, confirmed.Status)
	require.NotNil(t, confirmed.PaymentId)
	assert.Equal(t, p.ID, *confirmed.PaymentId)

	sm, err := env.store.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, sm.Booked)
}

func TestHandleCallback_DuplicateDeliveries(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)
	params := signedVNPayCallback(p.OrderRef, p.Amount, "00")

	// Cổng gửi IPN ba lần, người dùng quay về qua return: chỉ một lần có hiệu lực
	first := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN, params)
	second := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN, params)
	third := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceReturn, params)

	assert.Equal(t, payment.AckOK, first.Ack.RspCode)
	assert.Equal(t, payment.AckAlreadyProcessed, second.Ack.RspCode)
	assert.True(t, second.Success)
	assert.True(t, third.Success)
	assert.Contains(t, third.RedirectURL, "/payment/success?bookingId="+b.ID.String())

	assert.Equal(t, constants.PAYMENT_COMPLETED, env.payments.status(p.ID))
	assert.Equal(t, constants.BOOKING_CONFIRMED, env.bookings.status(b.ID))
}

func TestHandleCallback_DeclinedCancelsPendingBooking(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount, "24"))

	assert.False(t, out.Success)
	assert.Equal(t, payment.AckOK, out.Ack.RspCode)
	assert.Equal(t, constants.PAYMENT_FAILED, env.payments.status(p.ID))
	assert.Equal(t, constants.BOOKING_CANCELLED, env.bookings.status(b.ID))

	// Ghế được trả ngay, không phải chờ sweeper
	sm, err := env.store.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sm.Held)
	assert.Equal(t, 80, sm.AvailableCount)
}

func TestHandleCallback_ForgedSignatureTouchesNothing(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	params := signedVNPayCallback(p.OrderRef, p.Amount, "00")
	params.Set("vnp_SecureHash", strings.Repeat("ab", 64))

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN, params)
	assert.False(t, out.Success)
	assert.Equal(t, payment.AckInvalidSignature, out.Ack.RspCode)
	assert.Equal(t, constants.PAYMENT_PENDING, env.payments.status(p.ID))
	assert.Equal(t, constants.BOOKING_PENDING, env.bookings.status(b.ID))
}

func TestHandleCallback_UnknownOrder(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(payment.NewOrderRef(uuid.New()), 180000, "00"))
	assert.Equal(t, payment.AckOrderNotFound, out.Ack.RspCode)

	out = env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback("khong-ra-dinh-dang", 180000, "00"))
	assert.Equal(t, payment.AckOrderNotFound, out.Ack.RspCode)
}

func TestHandleCallback_UnknownGateway(t *testing.T) {
	env := newCoordEnv(t)

	out := env.co.HandleCallback(context.Background(), "zalopay", payment.SourceIPN, url.Values{})
	require.NotNil(t, out.Ack)
	assert.Equal(t, payment.AckUnknownError, out.Ack.RspCode)
}

func TestHandleCallback_AmountMismatch(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	// Bản tin ký hợp lệ nhưng số tiền của giao dịch khác
	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount+5000, "00"))

	assert.False(t, out.Success)
	assert.Equal(t, payment.AckInvalidAmount, out.Ack.RspCode)
	assert.Equal(t, constants.PAYMENT_PENDING, env.payments.status(p.ID))
	assert.Equal(t, constants.BOOKING_PENDING, env.bookings.status(b.ID))
}

func TestHandleCallback_SuccessAfterBookingCancelled(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	// Sweeper quét booking trước khi cổng báo về
	_, err = env.eng.CancelIfPending(ctx, b.ID)
	require.NoError(t, err)

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount, "00"))

	// Ack 00 để cổng ngừng gửi lại; tiền được đánh dấu hoàn
	assert.False(t, out.Success)
	assert.Equal(t, payment.AckOK, out.Ack.RspCode)
	assert.Equal(t, constants.PAYMENT_REFUNDED, env.payments.status(p.ID))
	assert.Equal(t, constants.BOOKING_CANCELLED, env.bookings.status(b.ID))
}

func TestHandleCallback_HealsUnconfirmedBooking(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	// Giả lập chết giữa chừng: payment đã COMPLETED, booking còn PENDING
	env.payments.setStatus(p.ID, constants.PAYMENT_COMPLETED)
	require.Equal(t, constants.BOOKING_PENDING, env.bookings.status(b.ID))

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount, "00"))

	assert.True(t, out.Success)
	assert.Equal(t, payment.AckAlreadyProcessed, out.Ack.RspCode)
	assert.Equal(t, constants.BOOKING_CONFIRMED, env.bookings.status(b.ID))
}

func TestHandleCallback_ReturnRedirects(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)

	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceReturn,
		signedVNPayCallback(p.OrderRef, p.Amount, "24"))

	assert.Nil(t, out.Ack)
	assert.Contains(t, out.RedirectURL, "http://localhost:5173/payment/failed?message=")
	assert.Contains(t, out.RedirectURL, url.QueryEscape("Khách hàng hủy giao dịch"))
}

func TestRefund(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)
	out := env.co.HandleCallback(ctx, constants.GATEWAY_VNPAY, payment.SourceIPN,
		signedVNPayCallback(p.OrderRef, p.Amount, "00"))
	require.True(t, out.Success)

	got, err := env.co.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.PAYMENT_REFUNDED, got.Status)
	assert.Equal(t, constants.BOOKING_CANCELLED, env.bookings.status(b.ID))

	// Ghế đã bán quay về trống
	sm, err := env.store.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sm.Booked)
	assert.Equal(t, 80, sm.AvailableCount)

	// Hoàn tiền lần hai vô hại
	again, err := env.co.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.PAYMENT_REFUNDED, again.Status)
}

func TestRefund_Rejects(t *testing.T) {
	env := newCoordEnv(t)
	ctx := context.Background()
	b := env.pendingBooking(t)

	_, err := env.co.Refund(ctx, uuid.New())
	assert.ErrorIs(t, err, payment.ErrNotFound)

	p, _, err := env.co.CreateIntent(ctx, constants.GATEWAY_VNPAY, b.ID, "")
	require.NoError(t, err)
	_, err = env.co.Refund(ctx, p.ID)
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}
