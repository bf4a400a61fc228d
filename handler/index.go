package handler

import (
	"cinema_booking/booking"
	"cinema_booking/payment"
	"cinema_booking/repository"
	"cinema_booking/seatstore"

	"github.com/redis/go-redis/v9"
)

// Các thành phần lắp ở main, handler giữ dạng package-global để route
// handler là hàm thuần như phần còn lại của codebase
var (
	seatStore   seatstore.Store
	engine      *booking.Engine
	coordinator *payment.Coordinator
	bookingRepo *repository.Bookings
	rdb         *redis.Client
)

func Init(store seatstore.Store, eng *booking.Engine, co *payment.Coordinator, bk *repository.Bookings, redisClient *redis.Client) {
	seatStore = store
	engine = eng
	coordinator = co
	bookingRepo = bk
	rdb = redisClient
}
