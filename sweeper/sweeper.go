// Package sweeper chạy nền dọn các booking PENDING quá hạn, hold hết TTL
// và giao dịch treo. Mọi thao tác nó gọi đều idempotent nên chạy chồng
// với traffic người dùng hay chạy hai bản song song đều an toàn.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cinema_booking/booking"
	"cinema_booking/constants"
	"cinema_booking/model"
	"cinema_booking/seatstore"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type BookingRepo interface {
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]model.Booking, error)
}

type Engine interface {
	CancelIfPending(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}

type PaymentRepo interface {
	FailStale(ctx context.Context, before time.Time) (int64, error)
}

type Sweeper struct {
	bookings BookingRepo
	engine   Engine
	payments PaymentRepo
	seats    seatstore.Store

	expiry        time.Duration
	sweepInterval time.Duration
	holdInterval  time.Duration

	cron    *cron.Cron
	janitor gocron.Scheduler
}

func NewSweeper(bookings BookingRepo, engine Engine, payments PaymentRepo, seats seatstore.Store,
	expiry, sweepInterval, holdInterval time.Duration) *Sweeper {
	return &Sweeper{
		bookings:      bookings,
		engine:        engine,
		payments:      payments,
		seats:         seats,
		expiry:        expiry,
		sweepInterval: sweepInterval,
		holdInterval:  holdInterval,
	}
}

// Start đăng ký các job định kỳ. SkipIfStillRunning để một lượt quét chậm
// không chồng lên lượt sau.
func (s *Sweeper) Start() error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), s.ExpireBookings); err != nil {
		return fmt.Errorf("đăng ký job hết hạn booking: %w", err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.holdInterval), s.SweepHolds); err != nil {
		return fmt.Errorf("đăng ký job dọn hold: %w", err)
	}
	s.cron.Start()

	// Janitor chạy một lần mỗi ngày lúc 03:00 ICT, giờ vắng traffic
	j, err := gocron.NewScheduler(
		gocron.WithLocation(time.FixedZone("ICT", 7*3600)),
	)
	if err != nil {
		return err
	}
	s.janitor = j
	if _, err := j.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(3, 0, 0),
			),
		),
		gocron.NewTask(s.FailStalePayments),
	); err != nil {
		return fmt.Errorf("đăng ký job dọn giao dịch treo: %w", err)
	}
	j.Start()

	log.Printf("✅ Sweeper đã khởi động (booking mỗi %s, hold mỗi %s)", s.sweepInterval, s.holdInterval)
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.janitor != nil {
		if err := s.janitor.Shutdown(); err != nil {
			log.Printf("dừng janitor thất bại: %v", err)
		}
	}
	log.Println("Sweeper đã dừng")
}

// ExpireBookings hủy theo lô các booking PENDING tạo trước hạn cho phép.
// Một booking lỗi chỉ bị log rồi đi tiếp, không chặn cả lô; booking vừa
// kịp CONFIRMED giữa lúc quét thì bỏ qua.
func (s *Sweeper) ExpireBookings() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.expiry)

	rows, err := s.bookings.ListExpiredPending(ctx, cutoff, constants.EXPIRE_BATCH_SIZE)
	if err != nil {
		log.Printf("quét booking quá hạn thất bại: %v", err)
		return
	}

	cancelled := 0
	for i := range rows {
		if _, err := s.engine.CancelIfPending(ctx, rows[i].ID); err != nil {
			if !errors.Is(err, booking.ErrInvalidTransition) {
				log.Printf("hủy booking quá hạn %s thất bại: %v", rows[i].Code, err)
			}
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		log.Printf("đã hủy %d booking quá hạn", cancelled)
	}
}

// SweepHolds gỡ hold hết TTL trên mọi suất chiếu
func (s *Sweeper) SweepHolds() {
	n, err := s.seats.SweepExpired(context.Background(), 0, time.Now())
	if err != nil {
		log.Printf("dọn hold hết hạn thất bại: %v", err)
		return
	}
	if n > 0 {
		log.Printf("đã dọn %d hold hết hạn", n)
	}
}

// FailStalePayments đánh FAILED giao dịch PENDING treo quá một ngày,
// cổng thanh toán không bao giờ gọi lại những giao dịch cũ cỡ đó
func (s *Sweeper) FailStalePayments() {
	n, err := s.payments.FailStale(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Printf("dọn giao dịch treo thất bại: %v", err)
		return
	}
	if n > 0 {
		log.Printf("đã đánh FAILED %d giao dịch treo", n)
	}
}
