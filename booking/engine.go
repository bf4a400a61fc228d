// Package booking sở hữu vòng đời booking: giữ ghế rồi ghi PENDING,
// xác nhận khi thanh toán xong, hủy khi người dùng bỏ hoặc hết hạn.
// Mọi chuyển trạng thái đi qua CAS trên cột status nên engine, coordinator
// và sweeper có thể chạy song song mà không giẫm lên nhau.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"
	"cinema_booking/repository"
	"cinema_booking/seatstore"

	"github.com/google/uuid"
)

// Repository là phần bảng bookings mà engine cần
type Repository interface {
	Insert(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	CASStatus(ctx context.Context, id uuid.UUID, from, to string, patch map[string]any) (bool, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type ShowtimeReader interface {
	Get(ctx context.Context, id uint) (*model.Showtime, error)
}

// Notifier gửi email vé / thông báo hủy. Best-effort: engine chỉ log lỗi,
// không bao giờ revert trạng thái vì notifier hỏng.
type Notifier interface {
	BookingConfirmed(b *model.Booking)
	BookingCancelled(b *model.Booking, refunded bool)
}

type Engine struct {
	seats     seatstore.Store
	repo      Repository
	showtimes ShowtimeReader
	notifier  Notifier
	holdTTL   time.Duration
}

func NewEngine(seats seatstore.Store, repo Repository, showtimes ShowtimeReader, notifier Notifier, holdTTL time.Duration) *Engine {
	return &Engine{
		seats:     seats,
		repo:      repo,
		showtimes: showtimes,
		notifier:  notifier,
		holdTTL:   holdTTL,
	}
}

// Create giữ ghế rồi ghi booking PENDING. Thứ tự bắt buộc: TryHold trước,
// ghi bản ghi sau; nếu ghi thất bại thì Release trước khi trả lỗi nên
// không bao giờ để lại hold mồ côi.
func (e *Engine) Create(ctx context.Context, userId uint, in *model.CreateBookingInput) (*model.Booking, error) {
	seats, err := normalizeSeats(in.Seats)
	if err != nil {
		return nil, err
	}

	st, err := e.showtimes.Get(ctx, in.ShowtimeId)
	if err != nil {
		return nil, fmt.Errorf("đọc suất chiếu %d: %w", in.ShowtimeId, err)
	}
	if st == nil {
		return nil, ErrShowtimeNotFound
	}
	if time.Now().After(st.StartTime) {
		return nil, ErrShowtimeStarted
	}
	for _, seat := range seats {
		if !st.ValidSeat(seat) {
			return nil, fmt.Errorf("%w: %s", ErrSeatInvalid, seat)
		}
	}

	b := &model.Booking{
		ID:         uuid.New(),
		UserId:     userId,
		ShowtimeId: st.ID,
		Seats:      seats,
		// Giá chốt tại thời điểm đặt, đổi giá suất chiếu sau đó không ảnh hưởng
		TotalPrice:    int64(len(seats)) * st.Price,
		Status:        constants.BOOKING_PENDING,
		MovieTitle:    st.Movie.Title,
		Auditorium:    st.Auditorium,
		ShowtimeStart: st.StartTime,
	}

	conflicts, err := e.seats.TryHold(ctx, st.ID, seats, b.ID, userId, e.holdTTL)
	if err != nil {
		if errors.Is(err, seatstore.ErrSeatConflict) {
			return nil, &SeatConflictError{Seats: conflicts}
		}
		if errors.Is(err, seatstore.ErrShowtimeNotFound) {
			return nil, ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("giữ ghế: %w", err)
	}

	// Mã booking dựa vào unique index; trùng thì chỉ sinh mã khác và ghi
	// lại bản ghi, hold theo UUID nên vẫn còn nguyên
	insertErr := error(nil)
	for attempt := 0; attempt < 3; attempt++ {
		b.Code = NewCode()
		insertErr = e.repo.Insert(ctx, b)
		if insertErr == nil {
			return b, nil
		}
		if !errors.Is(insertErr, repository.ErrDuplicateCode) {
			break
		}
	}

	if err := e.seats.Release(ctx, st.ID, seats, b.ID); err != nil {
		log.Printf("không gỡ được hold của booking %s sau khi ghi thất bại: %v", b.ID, err)
	}
	if errors.Is(insertErr, repository.ErrDuplicateCode) {
		return nil, ErrCodeExhausted
	}
	return nil, fmt.Errorf("ghi booking: %w", insertErr)
}

// Confirm chuyển PENDING -> CONFIRMED và nâng hold thành ghế đã bán.
// Idempotent trên booking đã CONFIRMED; lỗi invalid-transition nếu đã hủy
// (ghế có thể đã bán lại cho người khác).
func (e *Engine) Confirm(ctx context.Context, id uuid.UUID, pay *model.Payment) (*model.Booking, error) {
	b, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	switch b.Status {
	case constants.BOOKING_CONFIRMED:
		return b, nil
	case constants.BOOKING_CANCELLED:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	paidAt := now
	patch := map[string]any{"paid_at": paidAt}
	if pay != nil {
		if pay.PaidAt != nil {
			paidAt = *pay.PaidAt
			patch["paid_at"] = paidAt
		}
		patch["payment_id"] = pay.ID
		patch["payment_method"] = pay.Method
	}

	won, err := e.repo.CASStatus(ctx, id, constants.BOOKING_PENDING, constants.BOOKING_CONFIRMED, patch)
	if err != nil {
		return nil, err
	}
	if !won {
		// Thua CAS: ai đó vừa chuyển trạng thái, đọc lại để biết là gì
		cur, err := e.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == constants.BOOKING_CONFIRMED {
			return cur, nil
		}
		return nil, ErrInvalidTransition
	}

	// Đã CONFIRMED, từ đây không rollback nữa: promote hỏng chỉ log
	if err := e.seats.Promote(ctx, b.ShowtimeId, b.Seats); err != nil {
		log.Printf("promote ghế cho booking %s thất bại: %v", b.Code, err)
	}

	b.Status = constants.BOOKING_CONFIRMED
	b.PaidAt = &paidAt
	if pay != nil {
		b.PaymentId = &pay.ID
		b.PaymentMethod = pay.Method
	}
	if e.notifier != nil {
		e.notifier.BookingConfirmed(b)
	}
	return b, nil
}

// CancelIfPending hủy khi booking còn chờ thanh toán: đường người dùng tự
// hủy, sweeper hết hạn và cổng thanh toán báo từ chối. Booking đã CONFIRMED
// không hủy được qua đây, chỉ qua đường hoàn tiền Cancel.
func (e *Engine) CancelIfPending(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	switch b.Status {
	case constants.BOOKING_CANCELLED:
		return b, nil
	case constants.BOOKING_CONFIRMED:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	won, err := e.repo.CASStatus(ctx, id, constants.BOOKING_PENDING, constants.BOOKING_CANCELLED,
		map[string]any{"cancelled_at": now})
	if err != nil {
		return nil, err
	}
	if !won {
		cur, err := e.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == constants.BOOKING_CANCELLED {
			return cur, nil
		}
		return nil, ErrInvalidTransition
	}

	e.releaseSeats(ctx, b)
	b.Status = constants.BOOKING_CANCELLED
	b.CancelledAt = &now
	if e.notifier != nil {
		e.notifier.BookingCancelled(b, false)
	}
	return b, nil
}

// Cancel hủy từ cả PENDING lẫn CONFIRMED (đường hoàn tiền trả lại ghế đã
// bán). Idempotent trên booking đã hủy.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status == constants.BOOKING_CANCELLED {
		return b, nil
	}

	now := time.Now()
	won, err := e.repo.CASStatus(ctx, id, constants.BOOKING_PENDING, constants.BOOKING_CANCELLED,
		map[string]any{"cancelled_at": now})
	if err != nil {
		return nil, err
	}
	refunded := false
	if !won {
		won, err = e.repo.CASStatus(ctx, id, constants.BOOKING_CONFIRMED, constants.BOOKING_CANCELLED,
			map[string]any{"cancelled_at": now})
		if err != nil {
			return nil, err
		}
		refunded = won
	}
	if !won {
		cur, err := e.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == constants.BOOKING_CANCELLED {
			return cur, nil
		}
		return nil, ErrInvalidTransition
	}

	e.releaseSeats(ctx, b)
	if refunded {
		if err := e.seats.Unbook(ctx, b.ShowtimeId, b.Seats); err != nil {
			log.Printf("trả ghế đã bán của booking %s thất bại: %v", b.Code, err)
		}
	}
	b.Status = constants.BOOKING_CANCELLED
	b.CancelledAt = &now
	if e.notifier != nil {
		e.notifier.BookingCancelled(b, refunded)
	}
	return b, nil
}

// releaseSeats gỡ hold sau khi CAS đã thắng, nên lỗi ở đây chỉ log:
// hold sót lại sẽ tự hết hạn theo TTL
func (e *Engine) releaseSeats(ctx context.Context, b *model.Booking) {
	err := e.seats.Release(ctx, b.ShowtimeId, b.Seats, b.ID)
	if err == nil {
		return
	}
	if errors.Is(err, seatstore.ErrShowtimeNotFound) {
		log.Printf("suất chiếu %d của booking %s không còn, bỏ qua bước gỡ hold", b.ShowtimeId, b.Code)
		return
	}
	log.Printf("gỡ hold của booking %s thất bại: %v", b.Code, err)
}

// Extend gia hạn hold về now + holdTTL. Chỉ chủ booking và chỉ khi còn
// PENDING; hold đã bị sweeper dọn thì coi như booking hết hạn.
// Hạn tự hủy của booking vẫn tính từ lúc tạo, Extend không đẩy lùi nó.
func (e *Engine) Extend(ctx context.Context, id uuid.UUID, userId uint) (*model.Booking, error) {
	b, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.UserId != userId {
		return nil, ErrNotOwner
	}
	if b.Status != constants.BOOKING_PENDING {
		return nil, ErrInvalidTransition
	}

	n, err := e.seats.ExtendHolds(ctx, b.ShowtimeId, b.ID, e.holdTTL)
	if err != nil {
		return nil, fmt.Errorf("gia hạn hold: %w", err)
	}
	if n == 0 {
		return nil, ErrExpired
	}
	return b, nil
}

// VerifyQR soát vé ở cửa: payload hợp lệ, booking CONFIRMED, mã khớp,
// và mỗi vé chỉ soát đúng một lần.
func (e *Engine) VerifyQR(ctx context.Context, data string) (*model.Booking, error) {
	p, err := ParseQRPayload(data)
	if err != nil {
		return nil, err
	}

	id, _ := uuid.Parse(p.BookingId)
	b, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || !strings.EqualFold(b.Code, p.BookingCode) {
		return nil, ErrInvalidQR
	}
	if b.Status != constants.BOOKING_CONFIRMED {
		return nil, ErrInvalidQR
	}
	if b.CheckedInAt != nil {
		return nil, ErrAlreadyCheckedIn
	}

	now := time.Now()
	won, err := e.repo.MarkCheckedIn(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Hai cổng quét cùng lúc: chỉ một bên thắng
		return nil, ErrAlreadyCheckedIn
	}
	b.CheckedInAt = &now
	return b, nil
}

func normalizeSeats(raw []string) ([]string, error) {
	if len(raw) > constants.MAX_SEATS_PER_BOOKING {
		return nil, ErrTooManySeats
	}
	seats := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		label := strings.ToUpper(strings.TrimSpace(s))
		if label == "" {
			return nil, fmt.Errorf("%w: nhãn ghế rỗng", ErrSeatInvalid)
		}
		if seen[label] {
			return nil, ErrDuplicateSeat
		}
		seen[label] = true
		seats = append(seats, label)
	}
	return seats, nil
}
