package model

import (
	"time"
)

// Settings the storefront integration settings the configuration monitor
// reconciles against. Stored as a single row maintained by the settings
// CRUD screens.
type Settings struct {
	ID             uint64    `gorm:"primaryKey;comment:settings row ID" json:"id"`
	APIToken       string    `gorm:"type:varchar(512);comment:upstream API token" json:"api_token"`
	CampaignID     string    `gorm:"type:varchar(64);comment:campaign id (legacy token shape)" json:"campaign_id"`
	BusinessID     string    `gorm:"type:varchar(64);comment:business id (current token shape)" json:"business_id"`
	MailHost       string    `gorm:"type:varchar(255);comment:mail transport host" json:"mail_host"`
	MailPort       int       `gorm:"type:int;comment:mail transport port" json:"mail_port"`
	MailUsername   string    `gorm:"type:varchar(255);comment:mail transport username" json:"mail_username"`
	MailPassword   string    `gorm:"type:varchar(255);comment:mail transport password" json:"-"`
	MailSender     string    `gorm:"type:varchar(254);comment:sender address" json:"mail_sender"`
	AutoActivation bool      `gorm:"not null;default:false;comment:send eligible activations without operator confirmation" json:"auto_activation"`
	UpdatedAt      time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:update time" json:"updated_at"`
}

// TableName set name
func (Settings) TableName() string {
	return "settings"
}

// TokenIsBusinessShape reports whether the stored token is the current
// business-scoped shape. Legacy tokens are bound to a campaign instead.
func (s *Settings) TokenIsBusinessShape() bool {
	// business tokens are issued with a "B." prefix
	return len(s.APIToken) > 2 && s.APIToken[:2] == "B."
}
