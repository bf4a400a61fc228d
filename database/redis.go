package database

import (
	"cinema_booking/config"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

// ConnectRedis pub/sub trạng thái ghế là best-effort nên không ping lúc khởi động
func ConnectRedis() {
	addr := config.Config("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	RDB = redis.NewClient(&redis.Options{Addr: addr})
}
