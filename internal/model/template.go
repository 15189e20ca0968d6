package model

import (
	"time"
)

// ActivationTemplate policy and content bundle attached to products. AutoKey
// decides whether the system generates the activation code or an operator
// has to supply one. Rows referenced by a delivered order item are treated
// as immutable; the sync loop refuses policy changes on them.
type ActivationTemplate struct {
	ID            uint64    `gorm:"primaryKey;comment:template ID" json:"id"`
	Name          string    `gorm:"type:varchar(200);not null;comment:template name" json:"name"`
	AutoKey       bool      `gorm:"not null;default:false;comment:system generates the activation code" json:"auto_key"`
	RequiresLogin bool      `gorm:"not null;default:false;comment:buyer must log in to redeem" json:"requires_login"`
	ExpiryDays    int       `gorm:"type:int;not null;default:0;comment:days until the code expires, 0 = never" json:"expiry_days"`
	Body          string    `gorm:"type:text;comment:message body sent with the code" json:"body"`
	CreatedAt     time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:creation time" json:"created_at"`
	UpdatedAt     time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:update time" json:"updated_at"`
}

// TableName set name
func (ActivationTemplate) TableName() string {
	return "activation_templates"
}
