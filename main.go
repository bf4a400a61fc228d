package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cinema_booking/booking"
	"cinema_booking/config"
	"cinema_booking/database"
	"cinema_booking/handler"
	"cinema_booking/payment"
	"cinema_booking/repository"
	"cinema_booking/router"
	"cinema_booking/seatstore"
	"cinema_booking/sweeper"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Println("Cấu hình không hợp lệ:", err)
		os.Exit(1)
	}

	database.ConnectDB()
	database.ConnectRedis()

	// Lắp các thành phần lõi: seat store -> engine -> coordinator -> sweeper
	publisher := seatstore.NewRedisPublisher(database.RDB)
	seats := seatstore.NewGormStore(database.DB, publisher)

	bookingRepo := repository.NewBookings(database.DB)
	paymentRepo := repository.NewPayments(database.DB)
	showtimeRepo := repository.NewShowtimes(database.DB)
	mailer := utils.NewMailer(database.DB)

	engine := booking.NewEngine(seats, bookingRepo, showtimeRepo, mailer, settings.HoldTTL)
	coordinator := payment.NewCoordinator(paymentRepo, bookingRepo, engine,
		settings.FrontendURL, settings.HoldTTL,
		payment.NewVNPay(settings.VNPay), payment.NewMoMo(settings.MoMo))

	sw := sweeper.NewSweeper(bookingRepo, engine, paymentRepo, seats,
		settings.BookingExpiry, settings.SweepInterval, settings.HoldSweepInterval)
	if err := sw.Start(); err != nil {
		log.Println("Không khởi động được sweeper:", err)
		os.Exit(1)
	}

	handler.Init(seats, engine, coordinator, bookingRepo, database.RDB)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie",
		MaxAge:           600,
	}))

	router.SetupRoutes(app)

	// Tắt êm: đóng listener trước, dừng sweeper sau
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("Nhận tín hiệu dừng, đang tắt server...")
		if err := app.Shutdown(); err != nil {
			log.Println("Lỗi khi tắt server:", err)
		}
	}()

	if err := app.Listen(":" + settings.Port); err != nil {
		log.Println("Server dừng với lỗi:", err)
		sw.Stop()
		os.Exit(1)
	}
	sw.Stop()
	os.Exit(0)
}
