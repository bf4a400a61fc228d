// Package seatstore là nơi duy nhất được phép sửa trạng thái ghế của một
// suất chiếu. Ghế trống không có bản ghi; mọi thao tác là all-or-nothing
// trên danh sách ghế truyền vào.
package seatstore

import (
	"context"
	"errors"
	"time"

	"cinema_booking/model"

	"github.com/google/uuid"
)

var (
	ErrSeatConflict     = errors.New("seat already held or booked")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrUnavailable      = errors.New("seat storage unavailable")
)

type Store interface {
	// TryHold giữ toàn bộ danh sách ghế cho một booking trong ttl.
	// Thất bại nếu bất kỳ ghế nào đang BOOKED hoặc đang HELD còn hạn;
	// khi đó trả về danh sách ghế bị tranh chấp kèm ErrSeatConflict.
	TryHold(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID, userId uint, ttl time.Duration) ([]string, error)

	// Promote chuyển danh sách ghế sang BOOKED, gỡ mọi hold trên các ghế
	// đó bất kể ai giữ. Gọi lại trên ghế đã BOOKED là no-op.
	Promote(ctx context.Context, showtimeId uint, seats []string) error

	// Release gỡ các hold của đúng booking đó. Idempotent, không đụng ghế BOOKED.
	Release(ctx context.Context, showtimeId uint, seats []string, bookingId uuid.UUID) error

	// Unbook trả ghế BOOKED về trống (đường hoàn tiền).
	Unbook(ctx context.Context, showtimeId uint, seats []string) error

	// ExtendHolds gia hạn các hold còn sống của một booking, trả về số hold gia hạn được.
	ExtendHolds(ctx context.Context, showtimeId uint, bookingId uuid.UUID, ttl time.Duration) (int64, error)

	// SweepExpired gỡ mọi hold có expiresAt <= now. showtimeId = 0 quét toàn bộ.
	SweepExpired(ctx context.Context, showtimeId uint, now time.Time) (int64, error)

	// Snapshot dọn hold hết hạn rồi trả về sơ đồ ghế, nên không bao giờ
	// thấy hold cũ.
	Snapshot(ctx context.Context, showtimeId uint) (*model.SeatMap, error)
}

// Publisher nhận thông báo sau mỗi thao tác làm đổi trạng thái ghế.
// Best-effort: tính đúng đắn không phụ thuộc việc gửi thành công.
type Publisher interface {
	SeatStateChanged(showtimeId uint)
}
