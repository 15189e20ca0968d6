package model

import (
	"time"
)

// Client a known buyer. Matched by normalized email; created either
// automatically from the buyer identity on a finished order or through the
// interactive path where the operator supplies the email.
type Client struct {
	ID        uint64    `gorm:"primaryKey;comment:client ID" json:"id"`
	Email     string    `gorm:"type:varchar(254);uniqueIndex;not null;comment:normalized email, match key" json:"email"`
	Name      *string   `gorm:"type:varchar(200);comment:client name" json:"name,omitempty"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:creation time" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:update time" json:"updated_at"`

	Purchases []ClientPurchase `gorm:"foreignKey:ClientID" json:"purchases,omitempty"`
	Orders    []ClientOrder    `gorm:"foreignKey:ClientID" json:"orders,omitempty"`
}

// TableName set name
func (Client) TableName() string {
	return "clients"
}

// ClientPurchase accumulated quantity of one product bought by a client.
type ClientPurchase struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement;comment:purchase row ID" json:"id"`
	ClientID  uint64 `gorm:"type:bigint unsigned;not null;index;uniqueIndex:uniq_client_product;comment:client ID" json:"client_id"`
	ProductID uint64 `gorm:"type:bigint unsigned;not null;uniqueIndex:uniq_client_product;comment:product ID" json:"product_id"`
	Quantity  int    `gorm:"type:int;not null;default:0;comment:accumulated quantity" json:"quantity"`
}

// TableName set name
func (ClientPurchase) TableName() string {
	return "client_purchases"
}

// ClientOrder one marketplace order attributed to a client. The unique index
// on the external order id is what makes duplicate link attempts no-ops.
type ClientOrder struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement;comment:row ID" json:"id"`
	ClientID        uint64    `gorm:"type:bigint unsigned;not null;index;comment:client ID" json:"client_id"`
	ExternalOrderID string    `gorm:"type:varchar(64);uniqueIndex;not null;comment:marketplace order ID" json:"external_order_id"`
	CreatedAt       time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:link time" json:"created_at"`
}

// TableName set name
func (ClientOrder) TableName() string {
	return "client_orders"
}
