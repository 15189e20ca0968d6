package model

import (
	"time"
)

// Chat message authors as the marketplace reports them.
const (
	ChatAuthorSeller   = "SELLER"
	ChatAuthorCustomer = "CUSTOMER"
	ChatAuthorSystem   = "SYSTEM"
)

// ChatMessage one buyer/seller message on an order thread. Threads live on
// the marketplace; only the seller-side read marker is owned locally.
type ChatMessage struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"` // external order id
	Author    string    `json:"author"`   // SELLER, CUSTOMER, SYSTEM
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// FromBuyer reports whether the message counts against the unread total.
func (m *ChatMessage) FromBuyer() bool {
	return m.Author != ChatAuthorSeller
}
