package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"cinema_booking/seatstore"

	"github.com/gofiber/contrib/websocket"
)

var (
	wsClients = make(map[uint]map[*websocket.Conn]bool)
	wsMu      sync.Mutex
)

// SeatLive đẩy sơ đồ ghế qua websocket mỗi khi trạng thái ghế của suất
// chiếu thay đổi. Nguồn sự kiện là kênh Redis mà seatstore publish vào;
// best-effort, client rớt thì bị gỡ khỏi room.
func SeatLive(c *websocket.Conn) {
	id64, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id64 == 0 {
		c.Close()
		return
	}
	showtimeId := uint(id64)

	// Khi WS disconnect thì xóa client khỏi room
	defer func() {
		wsMu.Lock()
		if wsClients[showtimeId] != nil {
			delete(wsClients[showtimeId], c)
		}
		wsMu.Unlock()
		c.Close()
	}()

	wsMu.Lock()
	if wsClients[showtimeId] == nil {
		wsClients[showtimeId] = make(map[*websocket.Conn]bool)
	}
	wsClients[showtimeId][c] = true
	wsMu.Unlock()

	ctx := context.Background()

	// Gửi sơ đồ ghế lần đầu
	if snap, err := seatStore.Snapshot(ctx, showtimeId); err == nil {
		c.WriteJSON(snap)
	}

	pubsub := rdb.Subscribe(ctx, seatstore.Channel(showtimeId))
	defer pubsub.Close()

	for range pubsub.Channel() {
		snap, err := seatStore.Snapshot(ctx, showtimeId)
		if err != nil {
			continue
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			continue
		}

		wsMu.Lock()
		for conn := range wsClients[showtimeId] {
			// Client lỗi thì gỡ luôn
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(wsClients[showtimeId], conn)
			}
		}
		wsMu.Unlock()
	}
}
