package upstream

import "time"

// Order is the marketplace wire shape. Older marketplace accounts still
// emit single-product orders with the product fields flattened onto the
// order itself; the sync boundary folds those into Items.
type Order struct {
	ID         string      `json:"id"`
	OrderNo    string      `json:"order_no"`
	Status     string      `json:"status"`
	BuyerEmail *string     `json:"buyer_email,omitempty"`
	BuyerName  *string     `json:"buyer_name,omitempty"`
	Amount     int64       `json:"amount"`
	Currency   string      `json:"currency"`
	PlacedAt   time.Time   `json:"placed_at"`
	Items      []OrderItem `json:"items,omitempty"`

	// legacy flat-order fields
	ProductID   uint64 `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	UnitPrice   int64  `json:"unit_price,omitempty"`
}

// IsLegacyFlat reports whether the order uses the old single-product shape.
func (o *Order) IsLegacyFlat() bool {
	return len(o.Items) == 0 && o.ProductID != 0
}

// OrderItem one order line on the wire.
type OrderItem struct {
	ProductID   uint64  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	TemplateID  *uint64 `json:"template_id,omitempty"`
}

// Template is the marketplace activation template shape.
type Template struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	AutoKey       bool   `json:"auto_key"`
	RequiresLogin bool   `json:"requires_login"`
	ExpiryDays    int    `json:"expiry_days"`
	Body          string `json:"body"`
}

// ChatMessage one chat message on the wire.
type ChatMessage struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Author    string    `json:"author"` // seller, customer, system
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientRecord is the marketplace client (buyer) record shape.
type ClientRecord struct {
	ID    uint64  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// Settings is the marketplace account settings shape, evaluated by the
// configuration monitor predicates.
type Settings struct {
	APIToken     string `json:"api_token"`
	CampaignID   string `json:"campaign_id"`
	BusinessID   string `json:"business_id"`
	MailHost     string `json:"mail_host"`
	MailPort     int    `json:"mail_port"`
	MailUsername string `json:"mail_username"`
	MailPassword string `json:"mail_password"`
	MailSender   string `json:"mail_sender"`

	// AutoActivation global toggle for unattended activation delivery
	AutoActivation bool `json:"auto_activation"`
}

// Transition actions accepted by the marketplace.
const (
	ActionFulfill        = "fulfill"
	ActionSendActivation = "send_activation"
	ActionComplete       = "complete"
	ActionMarkFinished   = "mark_finished"
	ActionCancel         = "cancel"
)

// TransitionPayload optional body for a transition call.
type TransitionPayload struct {
	Keys   map[uint64]string `json:"keys,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// OrderFilters narrows FetchOrders.
type OrderFilters struct {
	Status string
	Since  time.Time
	Limit  int
}
