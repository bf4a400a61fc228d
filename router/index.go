package router

import (
	"cinema_booking/constants"
	"cinema_booking/handler"
	"cinema_booking/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1", logger.New())

	showtimes := v1.Group("/showtimes")
	showtimes.Get("/:id/seats", handler.GetShowtimeSeats)
	showtimes.Get("/:id/seats/live", websocket.New(handler.SeatLive))

	bookings := v1.Group("/bookings")
	bookings.Post("/", middleware.Protected(), handler.CreateBooking)
	bookings.Get("/", middleware.Protected(), handler.GetBookings)
	// verify-qr đứng trước các route :id để không bị nuốt làm tham số
	bookings.Post("/verify-qr", middleware.Protected(),
		middleware.Authorize(constants.ROLE_STAFF, constants.ROLE_ADMIN), handler.VerifyQR)
	bookings.Get("/code/:code", middleware.Protected(), handler.GetBookingByCode)
	bookings.Get("/:id", middleware.Protected(), handler.GetBookingById)
	bookings.Patch("/:id/cancel", middleware.Protected(), handler.CancelBooking)
	bookings.Post("/:id/extend", middleware.Protected(), handler.ExtendBooking)

	payments := v1.Group("/payments")
	payments.Post("/:gateway/create", middleware.Protected(), handler.CreatePaymentIntent)
	payments.Post("/:paymentId/refund", middleware.Protected(),
		middleware.Authorize(constants.ROLE_ADMIN), handler.RefundPayment)

	// Callback từ cổng thanh toán nằm ngoài /api/v1, cổng gọi thẳng vào đây
	app.Get("/payments/vnpay-return", handler.PaymentReturn(constants.GATEWAY_VNPAY))
	app.Post("/payments/vnpay-ipn", handler.PaymentIPN(constants.GATEWAY_VNPAY))
	app.Get("/payments/momo-return", handler.PaymentReturn(constants.GATEWAY_MOMO))
	app.Post("/payments/momo-ipn", handler.PaymentIPN(constants.GATEWAY_MOMO))
}
