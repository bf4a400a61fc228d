package handler

import (
	"errors"
	"log"
	"net/url"

	"cinema_booking/constants"
	"cinema_booking/helper"
	"cinema_booking/model"
	"cinema_booking/payment"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreatePaymentIntent tạo giao dịch PENDING và trả URL chuyển hướng sang
// cổng. Chỉ chủ booking mới được thanh toán cho nó.
func CreatePaymentIntent(c *fiber.Ctx) error {
	claim, ok := helper.Principal(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
	}
	gateway := c.Params("gateway")

	var input model.CreatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}
	if violations := utils.ValidateStruct(&input); violations != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, violations)
	}
	bookingId, err := uuid.Parse(input.BookingId)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	b, err := bookingRepo.GetByID(c.Context(), bookingId)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
	if b == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	}
	if b.UserId != claim.UserId {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OWNER)
	}

	p, redirect, err := coordinator.CreateIntent(c.Context(), gateway, bookingId, c.IP())
	if err != nil {
		return paymentError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, fiber.Map{
		"paymentId":   p.ID,
		"orderRef":    p.OrderRef,
		"amount":      p.Amount,
		"method":      p.Method,
		"redirectUrl": redirect,
	})
}

// PaymentReturn callback theo trình duyệt người dùng: xử lý xong luôn
// chuyển hướng về frontend, thành công hay thất bại đều không lộ lỗi thô
func PaymentReturn(gateway string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, err := url.ParseQuery(string(c.Request().URI().QueryString()))
		if err != nil {
			params = url.Values{}
		}
		out := coordinator.HandleCallback(c.Context(), gateway, payment.SourceReturn, params)
		return c.Redirect(out.RedirectURL, fiber.StatusFound)
	}
}

// PaymentIPN callback máy chủ-tới-máy chủ: body dạng form-urlencoded,
// response là ack JSON theo quy ước của cổng
func PaymentIPN(gateway string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, err := url.ParseQuery(string(c.Body()))
		if err != nil {
			return c.JSON(payment.IPNAck{RspCode: payment.AckUnknownError, Message: "Malformed body"})
		}
		out := coordinator.HandleCallback(c.Context(), gateway, payment.SourceIPN, params)
		return c.JSON(out.Ack)
	}
}

// RefundPayment admin hoàn tiền giao dịch đã COMPLETED, kéo theo hủy
// booking và trả ghế
func RefundPayment(c *fiber.Ctx) error {
	paymentId, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	p, err := coordinator.Refund(c.Context(), paymentId)
	if err != nil {
		return paymentError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, p)
}

func paymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrGatewayUnknown):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cổng thanh toán không được hỗ trợ")
	case errors.Is(err, payment.ErrBookingNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.BOOKING_NOT_FOUND)
	case errors.Is(err, payment.ErrBookingNotPending):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.BOOKING_NOT_PENDING)
	case errors.Is(err, payment.ErrAlreadyPaid):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Booking đã được thanh toán")
	case errors.Is(err, payment.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.PAYMENT_NOT_FOUND)
	case errors.Is(err, payment.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Chỉ hoàn tiền được giao dịch đã thanh toán thành công")
	default:
		log.Printf("lỗi không phân loại từ payment coordinator: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
}
