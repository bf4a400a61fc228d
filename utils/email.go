package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/smtp"
	"strconv"
	"strings"

	"cinema_booking/config"
	"cinema_booking/model"

	"github.com/jordan-wright/email"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// BookingEmailData dữ liệu cho template email xác nhận vé
type BookingEmailData struct {
	Code          string
	MovieTitle    string
	Auditorium    string
	Showtime      string
	Seats         string
	TotalPrice    string
	PaymentMethod string
	DetailLink    string
}

// Mailer gửi email vé sau khi booking đổi trạng thái. Mọi thao tác chạy
// async và chỉ log khi lỗi: xác nhận booking không bao giờ bị revert vì
// email hỏng.
type Mailer struct {
	db *gorm.DB
}

func NewMailer(db *gorm.DB) *Mailer {
	return &Mailer{db: db}
}

func (m *Mailer) userEmail(userId uint) string {
	var user model.User
	if err := m.db.First(&user, userId).Error; err != nil {
		log.Printf("không tìm thấy người dùng %d để gửi email: %v", userId, err)
		return ""
	}
	return user.Email
}

func formatVND(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "đ"
}

// BookingConfirmed gửi vé HTML kèm QR soát vé nhúng inline qua CID
func (m *Mailer) BookingConfirmed(b *model.Booking) {
	to := m.userEmail(b.UserId)
	if to == "" {
		return
	}

	data := BookingEmailData{
		Code:          b.Code,
		MovieTitle:    b.MovieTitle,
		Auditorium:    b.Auditorium,
		Showtime:      b.ShowtimeStart.Format("02/01/2006 15:04"),
		Seats:         strings.Join(b.Seats, ", "),
		TotalPrice:    formatVND(b.TotalPrice),
		PaymentMethod: b.PaymentMethod,
		DetailLink:    fmt.Sprintf("%s/booking/%s", config.Config("FRONTEND_URL"), b.Code),
	}
	qrContent, err := json.Marshal(b.QRPayload())
	if err != nil {
		log.Printf("không tạo được payload QR cho booking %s: %v", b.Code, err)
		return
	}

	go func() {
		tmpl, err := template.ParseFiles("templates/booking_confirmation.html")
		if err != nil {
			log.Printf("lỗi load template email: %v", err)
			return
		}
		var htmlBody bytes.Buffer
		if err := tmpl.Execute(&htmlBody, data); err != nil {
			log.Printf("lỗi render template email: %v", err)
			return
		}

		msg := gomail.NewMessage()
		msg.SetHeader("From", config.Config("SMTP_FROM"))
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", "Vé xem phim - Mã đặt chỗ: "+data.Code)
		msg.SetBody("text/html", htmlBody.String())

		qrBytes, err := GenerateQRCode(string(qrContent), 400)
		if err != nil {
			log.Printf("lỗi tạo QR: %v", err)
		} else {
			// Nhúng inline từ memory, Content-ID trùng với cid: trong HTML
			msg.Embed("qr_checkin.png",
				gomail.SetCopyFunc(func(w io.Writer) error {
					_, err := w.Write(qrBytes)
					return err
				}),
				gomail.SetHeader(map[string][]string{
					"Content-Type":        {"image/png"},
					"Content-ID":          {"<qr_checkin_code>"},
					"Content-Disposition": {"inline"},
				}),
			)
		}

		port, _ := strconv.Atoi(config.Config("SMTP_PORT"))
		if port == 0 {
			port = 587
		}
		d := gomail.NewDialer(config.Config("SMTP_HOST"), port, config.Config("SMTP_USERNAME"), config.Config("SMTP_PASSWORD"))
		if err := d.DialAndSend(msg); err != nil {
			log.Printf("lỗi gửi email vé %s: %v", data.Code, err)
		}
	}()
}

// BookingCancelled gửi thông báo hủy dạng text đơn giản
func (m *Mailer) BookingCancelled(b *model.Booking, refunded bool) {
	to := m.userEmail(b.UserId)
	if to == "" {
		return
	}

	subject := "Booking " + b.Code + " đã bị hủy"
	body := fmt.Sprintf("Booking %s (%s, ghế %s) đã bị hủy. Ghế của bạn đã được trả lại.",
		b.Code, b.MovieTitle, strings.Join(b.Seats, ", "))
	if refunded {
		subject = "Hoàn tiền booking " + b.Code
		body = fmt.Sprintf("Booking %s (%s, ghế %s) đã được hoàn tiền %s. Tiền sẽ về tài khoản trong 5-7 ngày làm việc.",
			b.Code, b.MovieTitle, strings.Join(b.Seats, ", "), formatVND(b.TotalPrice))
	}

	go func() {
		e := email.NewEmail()
		e.From = config.Config("SMTP_FROM")
		e.To = []string{to}
		e.Subject = subject
		e.Text = []byte(body)

		host := config.Config("SMTP_HOST")
		port := config.Config("SMTP_PORT")
		if port == "" {
			port = "587"
		}
		auth := smtp.PlainAuth("", config.Config("SMTP_USERNAME"), config.Config("SMTP_PASSWORD"), host)
		if err := e.Send(host+":"+port, auth); err != nil {
			log.Printf("lỗi gửi email hủy booking %s: %v", b.Code, err)
		}
	}()
}
