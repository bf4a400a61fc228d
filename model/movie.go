package model

type Movie struct {
	DTO
	Title       string `gorm:"not null;index" validate:"required" json:"title"` // Tên phim
	Slug        string `gorm:"unique;not null" json:"slug"`
	Genre       string `gorm:"index" json:"genre"`
	Duration    int    `gorm:"not null" json:"duration"` // thời lượng (phút)
	Description string `gorm:"type:text" json:"description"`
	PosterUrl   string `json:"posterUrl"`
	Status      string `gorm:"size:20;default:SHOWING" json:"status"` // UPCOMING, SHOWING, ENDED
}
