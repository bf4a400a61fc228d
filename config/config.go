package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

// Config đọc một biến môi trường, ưu tiên giá trị trong file .env
func Config(key string) string {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Không tìm thấy file .env, dùng biến môi trường hệ thống")
		}
	})
	return os.Getenv(key)
}

// GatewayCreds bộ thông tin kết nối một cổng thanh toán
type GatewayCreds struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// Settings cấu hình lõi đặt vé, nạp một lần lúc khởi động và không đổi khi chạy
type Settings struct {
	Port              string
	FrontendURL       string
	HoldTTL           time.Duration
	BookingExpiry     time.Duration
	SweepInterval     time.Duration
	HoldSweepInterval time.Duration
	VNPay             GatewayCreds
	MoMo              GatewayCreds
}

func secondsOr(key string, def int) (time.Duration, error) {
	raw := Config(key)
	if raw == "" {
		return time.Duration(def) * time.Second, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s phải là số giây dương, nhận %q", key, raw)
	}
	return time.Duration(n) * time.Second, nil
}

// Load đọc và kiểm tra toàn bộ cấu hình. Lỗi ở đây là lỗi vận hành:
// main in ra và thoát với mã 1.
func Load() (*Settings, error) {
	s := &Settings{
		Port:        Config("PORT"),
		FrontendURL: Config("FRONTEND_URL"),
		VNPay: GatewayCreds{
			TmnCode:    Config("VNP_TMN_CODE"),
			HashSecret: Config("VNP_HASH_SECRET"),
			PayURL:     Config("VNP_URL"),
			ReturnURL:  Config("VNP_RETURN_URL"),
		},
		MoMo: GatewayCreds{
			TmnCode:    Config("MOMO_TMN_CODE"),
			HashSecret: Config("MOMO_HASH_SECRET"),
			PayURL:     Config("MOMO_URL"),
			ReturnURL:  Config("MOMO_RETURN_URL"),
		},
	}
	if s.Port == "" {
		s.Port = "8002"
	}
	if s.FrontendURL == "" {
		s.FrontendURL = "http://localhost:5173"
	}

	var err error
	if s.HoldTTL, err = secondsOr("HOLD_TTL_SECONDS", 600); err != nil {
		return nil, err
	}
	if s.BookingExpiry, err = secondsOr("BOOKING_EXPIRY_SECONDS", 900); err != nil {
		return nil, err
	}
	if s.SweepInterval, err = secondsOr("SWEEP_INTERVAL_SECONDS", 300); err != nil {
		return nil, err
	}
	if s.HoldSweepInterval, err = secondsOr("HOLD_SWEEP_INTERVAL_SECONDS", 600); err != nil {
		return nil, err
	}
	if s.BookingExpiry < s.HoldTTL {
		return nil, fmt.Errorf("BOOKING_EXPIRY_SECONDS (%v) phải >= HOLD_TTL_SECONDS (%v)", s.BookingExpiry, s.HoldTTL)
	}
	return s, nil
}
