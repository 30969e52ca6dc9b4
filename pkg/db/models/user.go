package models

import "time"

// User places orders.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:255;not null"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex:idx_users_email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
