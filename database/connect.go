package database

import (
	"cinema_booking/config"
	"cinema_booking/model"
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() {
	var err error
	p := config.Config("DB_PORT")
	port, err := strconv.ParseUint(p, 10, 32)

	if err != nil {
		log.Println("DB_PORT không hợp lệ:", p)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", config.Config("DB_HOST"), port, config.Config("DB_USER"), config.Config("DB_PASSWORD"), config.Config("DB_NAME"))
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		log.Println("Không kết nối được database:", err)
		os.Exit(2)
	}

	fmt.Println("Connection Opened to Database")
	if err := DB.AutoMigrate(
		&model.User{},
		&model.Movie{},
		&model.Showtime{},
		&model.ShowtimeSeat{},
		&model.Booking{},
		&model.Payment{},
	); err != nil {
		log.Println("Không migrate được database:", err)
		os.Exit(2)
	}
	fmt.Println("Database Migrated")

	// khởi tạo dữ liệu
	SeedData(DB)
}
