package database

import (
	"cinema_booking/constants"
	"cinema_booking/helper"
	"cinema_booking/model"
	"log"
	"time"

	"gorm.io/gorm"
)

func SeedData(db *gorm.DB) {
	HashPassword, err := helper.HashPassword("123456cn")
	if err != nil {
		log.Println("không hash được mật khẩu seed:", err)
		return
	}
	users := []model.User{
		{Username: "Administration", Email: "admin@cinema.local", Password: HashPassword, FullName: "Quản trị viên", Role: constants.ROLE_ADMIN},
		{Username: "gatekeeper", Email: "staff@cinema.local", Password: HashPassword, FullName: "Nhân viên soát vé", Role: constants.ROLE_STAFF},
		{Username: "demo", Email: "demo@cinema.local", Password: HashPassword, FullName: "Khách demo", Role: constants.ROLE_CUSTOMER},
	}

	for _, user := range users {
		// Tạo mới nếu không tồn tại
		if err := db.Where(model.User{Username: user.Username}).FirstOrCreate(&user).Error; err != nil {
			log.Println("failed to seed data for user:", user.Username, "error:", err)
		}
	}

	movies := []model.Movie{
		{Title: "Mai", Genre: "Tâm lý", Duration: 131, Description: "Phim điện ảnh của Trấn Thành", Status: "SHOWING"},
		{Title: "Lật Mặt 7: Một Điều Ước", Genre: "Gia đình", Duration: 138, Description: "Phim của Lý Hải", Status: "SHOWING"},
	}
	for i := range movies {
		var existing model.Movie
		if err := db.Where(model.Movie{Title: movies[i].Title}).First(&existing).Error; err == nil {
			movies[i] = existing
			continue
		}
		movies[i].Slug = helper.GenerateUniqueMovieSlug(db, movies[i].Title)
		if err := db.Create(&movies[i]).Error; err != nil {
			log.Println("failed to seed data for movie:", movies[i].Title, "error:", err)
		}
	}

	// Suất chiếu demo: 2 ngày tới, mỗi phim 2 khung giờ
	var count int64
	db.Model(&model.Showtime{}).Count(&count)
	if count == 0 {
		base := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)
		slots := []time.Duration{18 * time.Hour, 20*time.Hour + 30*time.Minute}
		for i, m := range movies {
			for day := 0; day < 2; day++ {
				for _, slot := range slots {
					start := base.Add(time.Duration(day) * 24 * time.Hour).Add(slot)
					st := model.Showtime{
						MovieId:     m.ID,
						Auditorium:  []string{"Phòng 1", "Phòng 2"}[i%2],
						StartTime:   start,
						EndTime:     start.Add(time.Duration(m.Duration) * time.Minute),
						Price:       90000,
						SeatRows:    "ABCDEFGH",
						SeatsPerRow: 10,
					}
					if slot > 19*time.Hour {
						st.Price = 120000 // khung giờ vàng
					}
					if err := db.Create(&st).Error; err != nil {
						log.Println("failed to seed showtime:", err)
					}
				}
			}
		}
	}
}
