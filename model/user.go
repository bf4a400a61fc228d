package model

type User struct {
	DTO
	Username    string `gorm:"unique;not null" json:"username"`
	Email       string `gorm:"unique;not null" json:"email"`
	Password    string `json:"-"`
	FullName    string `json:"fullName"`
	PhoneNumber string `gorm:"size:15" json:"phoneNumber"`
	Role        string `gorm:"size:20;default:CUSTOMER" json:"role"`
	Active      bool   `gorm:"default:true" json:"active"`
}
