package models

import "time"

// AdminUser is an operator allowed to sign in to the catalog admin.
type AdminUser struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:admin_users_email_key"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
