package model

import (
	"time"
)

// User staff account operating the admin panel.
type User struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement;comment:user ID" json:"id"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null;comment:login name" json:"username"`
	Email        *string    `gorm:"type:varchar(254);uniqueIndex;comment:email" json:"email,omitempty"`
	PasswordHash string     `gorm:"type:varchar(255);not null;comment:bcrypt hash" json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'operator';comment:role: admin, operator" json:"role"`
	Status       int8       `gorm:"type:tinyint;not null;default:1;index;comment:status: 1-active 2-disabled" json:"status"`
	LastLoginAt  *time.Time `gorm:"type:timestamp;comment:last login time" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:creation time" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:update time" json:"updated_at"`
}

// TableName set name
func (User) TableName() string {
	return "users"
}

// UserStatus user status const
const (
	UserStatusActive   int8 = 1
	UserStatusDisabled int8 = 2
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// IsActive check if user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
