package model

import "time"

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`

	// bcrypt 哈希
	Password string `gorm:"not null" json:"-"`

	Avatar string `json:"avatar"`
}

func (User) TableName() string {
	return "user"
}
