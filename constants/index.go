package constants

// Vai trò tài khoản
const (
	ROLE_ADMIN    = "ADMIN"
	ROLE_STAFF    = "STAFF"
	ROLE_CUSTOMER = "CUSTOMER"
)

// Trạng thái ghế trong một suất chiếu. Ghế trống không có bản ghi.
const (
	SEAT_HELD   = "HELD"
	SEAT_BOOKED = "BOOKED"
)

// Trạng thái booking
const (
	BOOKING_PENDING   = "PENDING"
	BOOKING_CONFIRMED = "CONFIRMED"
	BOOKING_CANCELLED = "CANCELLED"
)

// Trạng thái thanh toán
const (
	PAYMENT_PENDING   = "PENDING"
	PAYMENT_COMPLETED = "COMPLETED"
	PAYMENT_FAILED    = "FAILED"
	PAYMENT_REFUNDED  = "REFUNDED"
)

// Cổng thanh toán hỗ trợ
const (
	GATEWAY_VNPAY = "vnpay"
	GATEWAY_MOMO  = "momo"
)

const (
	MAX_SEATS_PER_BOOKING = 8
	BOOKING_CODE_LENGTH   = 8
	EXPIRE_BATCH_SIZE     = 100
	QR_VALID_DAYS         = 30
)

// Thông báo dùng chung cho response
const (
	ERROR_INPUT                = "Dữ liệu gửi lên không hợp lệ"
	ERROR_INTERNAL_ERROR       = "Có lỗi xảy ra, vui lòng thử lại sau"
	ERROR_PARSE_DATA_TO_LOCALS = "Không đọc được thông tin đăng nhập"
	NOT_ADMIN                  = "Bạn không có quyền thực hiện thao tác này"
	NOT_OWNER                  = "Bạn không phải chủ sở hữu booking này"
	SEAT_TAKEN                 = "Ghế đã có người giữ hoặc đã bán"
	SEAT_INVALID               = "Ghế không tồn tại trong phòng chiếu"
	SEAT_DUPLICATE             = "Danh sách ghế có ghế trùng lặp"
	SEAT_LIMIT                 = "Vượt quá số ghế tối đa cho một lần đặt"
	SHOWTIME_NOT_FOUND         = "Suất chiếu không tồn tại"
	SHOWTIME_STARTED           = "Suất chiếu đã bắt đầu, không thể đặt vé"
	BOOKING_CODE_EXHAUSTED     = "Không tạo được mã booking, vui lòng thử lại"
	BOOKING_NOT_FOUND          = "Không tìm thấy booking"
	BOOKING_NOT_PENDING        = "Booking không còn ở trạng thái chờ thanh toán"
	BOOKING_EXPIRED            = "Booking đã hết hạn giữ ghế"
	PAYMENT_NOT_FOUND          = "Không tìm thấy giao dịch thanh toán"
	INVALID_SIGNATURE          = "Chữ ký không hợp lệ"
	INVALID_QR                 = "Mã QR không hợp lệ hoặc đã hết hạn"
	ALREADY_CHECKED_IN         = "Vé đã được soát trước đó"
)
