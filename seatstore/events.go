package seatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Channel tên kênh Redis cho một suất chiếu, websocket handler sub cùng kênh này
func Channel(showtimeId uint) string {
	return fmt.Sprintf("showtime:%d", showtimeId)
}

// RedisPublisher đẩy sự kiện đổi trạng thái ghế qua Redis pub/sub
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) SeatStateChanged(showtimeId uint) {
	payload, _ := json.Marshal(map[string]any{
		"type":       "seats_changed",
		"showtimeId": showtimeId,
	})
	if err := p.rdb.Publish(context.Background(), Channel(showtimeId), payload).Err(); err != nil {
		log.Println("không publish được sự kiện ghế:", err)
	}
}
