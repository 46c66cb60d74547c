package dbmysql

import (
	"time"
)

type User struct {
	ID          string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	Email       string    `gorm:"column:email;size:255;not null" json:"email"`
	FullName    string    `gorm:"column:full_name;size:255;not null" json:"full_name"`
	AvatarURL   string    `gorm:"column:avatar_url;size:512" json:"avatar_url,omitempty"`
	PhoneNumber string    `gorm:"column:phone_number;size:20" json:"phone_number,omitempty"`
	Status      string    `gorm:"column:status;size:20;default:'active'" json:"status,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
