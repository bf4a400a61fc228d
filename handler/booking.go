package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"cinema_booking/booking"
	"cinema_booking/constants"
	"cinema_booking/helper"
	"cinema_booking/model"
	"cinema_booking/seatstore"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateBooking giữ ghế và tạo booking PENDING cho người đang đăng nhập
func CreateBooking(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}

	var input model.CreateBookingInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}
	if violations := utils.ValidateStruct(&input); violations != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, violations)
	}

	b, err := engine.Create(c.Context(), claim.UserId, &input)
	if err != nil {
		return bookingError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, booking.NewView(b, ""))
}

// GetBookings danh sách booking của người gọi, admin thấy tất cả
func GetBookings(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	p := utils.ParsePagination(c)

	userId := claim.UserId
	if claim.Role == constants.ROLE_ADMIN {
		userId = 0
	}
	rows, total, err := bookingRepo.List(c.Context(), userId, p)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, model.ResponseCustom{
		Rows:       booking.NewViews(rows),
		Limit:      p.Limit,
		Page:       p.Page,
		TotalCount: total,
	})
}

func GetBookingById(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	b, err := bookingRepo.GetByID(c.Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
	if b == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	}
	if b.UserId != claim.UserId && claim.Role != constants.ROLE_ADMIN {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OWNER)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking.NewView(b, bookingQR(b)))
}

func GetBookingByCode(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	if len(code) != constants.BOOKING_CODE_LENGTH {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	b, err := bookingRepo.GetByCode(c.Context(), code)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
	if b == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	}
	if b.UserId != claim.UserId && claim.Role != constants.ROLE_ADMIN {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OWNER)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking.NewView(b, bookingQR(b)))
}

// CancelBooking người dùng tự hủy khi còn PENDING. Booking đã CONFIRMED
// chỉ hủy được qua đường hoàn tiền của admin.
func CancelBooking(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	b, err := bookingRepo.GetByID(c.Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
	if b == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	}
	if b.UserId != claim.UserId && claim.Role != constants.ROLE_ADMIN {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OWNER)
	}

	out, err := engine.CancelIfPending(c.Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking.NewView(out, ""))
}

// ExtendBooking gia hạn giữ ghế về now + TTL khi chưa kịp thanh toán
func ExtendBooking(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	b, err := engine.Extend(c.Context(), id, claim.UserId)
	if err != nil {
		return bookingError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking.NewView(b, ""))
}

// VerifyQR soát vé ở cửa, chỉ nhân viên. Mỗi vé soát đúng một lần.
func VerifyQR(c *fiber.Ctx) error {
	var input model.VerifyQRInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}
	if violations := utils.ValidateStruct(&input); violations != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, violations)
	}

	b, err := engine.VerifyQR(c.Context(), input.Data)
	if err != nil {
		return bookingError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking.NewView(b, ""))
}

// bookingQR dựng data URI ảnh QR, chỉ cho booking đã CONFIRMED
func bookingQR(b *model.Booking) string {
	if b.Status != constants.BOOKING_CONFIRMED {
		return ""
	}
	payload, err := json.Marshal(b.QRPayload())
	if err != nil {
		return ""
	}
	uri, err := utils.QRDataURI(string(payload), 256)
	if err != nil {
		log.Printf("tạo QR cho booking %s thất bại: %v", b.Code, err)
		return ""
	}
	return uri
}

// bookingError quy lỗi của engine về envelope HTTP chung
func bookingError(c *fiber.Ctx, err error) error {
	var conflict *booking.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return utils.ErrorResponse(c, fiber.StatusConflict,
			fmt.Sprintf("%s: %s", constants.SEAT_TAKEN, strings.Join(conflict.Seats, ", ")))
	case errors.Is(err, booking.ErrShowtimeNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.SHOWTIME_NOT_FOUND)
	case errors.Is(err, booking.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	case errors.Is(err, booking.ErrSeatInvalid):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.SEAT_INVALID)
	case errors.Is(err, booking.ErrDuplicateSeat):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.SEAT_DUPLICATE)
	case errors.Is(err, booking.ErrTooManySeats):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.SEAT_LIMIT)
	case errors.Is(err, booking.ErrShowtimeStarted):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.SHOWTIME_STARTED)
	case errors.Is(err, booking.ErrCodeExhausted):
		return utils.ErrorResponse(c, fiber.StatusConflict, constants.BOOKING_CODE_EXHAUSTED)
	case errors.Is(err, booking.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.BOOKING_NOT_PENDING)
	case errors.Is(err, booking.ErrNotOwner):
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OWNER)
	case errors.Is(err, booking.ErrExpired):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.BOOKING_EXPIRED)
	case errors.Is(err, booking.ErrAlreadyCheckedIn):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ALREADY_CHECKED_IN)
	case errors.Is(err, booking.ErrInvalidQR):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_QR)
	case errors.Is(err, seatstore.ErrUnavailable):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_INTERNAL_ERROR)
	default:
		log.Printf("lỗi không phân loại từ booking engine: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
}
