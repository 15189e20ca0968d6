package model

import (
	"time"
)

// Order mirrors a marketplace order locally. Rows are created by the sync
// loop in pending state and only ever move forward; terminal states are
// stamped, never deleted.
type Order struct {
	ID              uint64     `gorm:"primaryKey;comment:internal order ID" json:"id"`
	ExternalID      string     `gorm:"type:varchar(64);uniqueIndex;not null;comment:marketplace order ID" json:"external_id"`
	OrderNo         string     `gorm:"type:varchar(32);uniqueIndex;not null;comment:admin-facing order number" json:"order_no"`
	BuyerEmail      *string    `gorm:"type:varchar(254);index;comment:marketplace buyer email" json:"buyer_email,omitempty"`
	BuyerName       *string    `gorm:"type:varchar(200);comment:marketplace buyer name" json:"buyer_name,omitempty"`
	Status          int8       `gorm:"type:tinyint;not null;default:1;index;comment:status: 1-pending 2-processing 3-completed 4-finished 5-cancelled 6-failed" json:"status"`
	ActivationSent  bool       `gorm:"not null;default:false;comment:all items have activation sent" json:"activation_sent"`
	HasClient       bool       `gorm:"not null;default:false;comment:linked to a client record" json:"has_client"`
	TotalAmount     int64      `gorm:"type:bigint;not null;comment:total amount (cents)" json:"total_amount"`
	Currency        string     `gorm:"type:varchar(3);not null;default:'EUR';comment:currency code" json:"currency"`
	CancelReason    *string    `gorm:"type:varchar(255);comment:cancellation reason" json:"cancel_reason,omitempty"`
	CompletedAt     *time.Time `gorm:"type:timestamp;comment:completion time" json:"completed_at,omitempty"`
	FinishedAt      *time.Time `gorm:"type:timestamp;comment:finish time" json:"finished_at,omitempty"`
	PlacedAt        time.Time  `gorm:"type:timestamp;not null;comment:time the buyer placed the order" json:"placed_at"`
	CreatedAt       time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:ingestion time" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:update time" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// OrderItem one line of an order, optionally bound to an activation template.
type OrderItem struct {
	ID             uint64     `gorm:"primaryKey;comment:item ID" json:"id"`
	OrderID        uint64     `gorm:"type:bigint unsigned;not null;index;comment:internal order ID" json:"order_id"`
	ProductID      uint64     `gorm:"type:bigint unsigned;not null;index;comment:product ID" json:"product_id"`
	ProductName    string     `gorm:"type:varchar(200);not null;comment:product name" json:"product_name"`
	Quantity       int        `gorm:"type:int;not null;comment:quantity" json:"quantity"`
	UnitPrice      int64      `gorm:"type:bigint;not null;comment:unit price (cents)" json:"unit_price"`
	TemplateID     *uint64    `gorm:"type:bigint unsigned;index;comment:bound activation template" json:"template_id,omitempty"`
	ActivationSent bool       `gorm:"not null;default:false;comment:activation delivered for this item" json:"activation_sent"`
	ActivationKey  *string    `gorm:"type:varchar(128);comment:delivered activation key" json:"activation_key,omitempty"`
	SentAt         *time.Time `gorm:"type:timestamp;comment:activation delivery time" json:"sent_at,omitempty"`
	CreatedAt      time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;comment:creation time" json:"created_at"`
}

// TableName set name
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderStatus order status const
const (
	OrderStatusPending    int8 = 1
	OrderStatusProcessing int8 = 2
	OrderStatusCompleted  int8 = 3
	OrderStatusFinished   int8 = 4
	OrderStatusCancelled  int8 = 5
	OrderStatusFailed     int8 = 6
)

// OrderStatusName maps a status to its wire name.
func OrderStatusName(status int8) string {
	switch status {
	case OrderStatusPending:
		return "pending"
	case OrderStatusProcessing:
		return "processing"
	case OrderStatusCompleted:
		return "completed"
	case OrderStatusFinished:
		return "finished"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// statusRank orders the forward progress of the workflow. Terminal failure
// states rank highest so a stale forward confirmation can never override
// them.
var statusRank = map[int8]int{
	OrderStatusPending:    1,
	OrderStatusProcessing: 2,
	OrderStatusCompleted:  3,
	OrderStatusFinished:   4,
	OrderStatusCancelled:  5,
	OrderStatusFailed:     5,
}

// StatusRank returns the progress rank of a status.
func StatusRank(status int8) int {
	return statusRank[status]
}

// IsPending check order is pending
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsProcessing check order is processing
func (o *Order) IsProcessing() bool {
	return o.Status == OrderStatusProcessing
}

// IsCompleted check order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// IsFinished check order is finished
func (o *Order) IsFinished() bool {
	return o.Status == OrderStatusFinished
}

// IsTerminal check order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusFinished ||
		o.Status == OrderStatusCancelled ||
		o.Status == OrderStatusFailed
}

// CanCancel cancellation is reachable from pending or processing only
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// AllItemsSent reports whether every item has its activation delivered.
func (o *Order) AllItemsSent() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].ActivationSent {
			return false
		}
	}
	return true
}

// GetTotalAmountMajor get total amount in major currency units
func (o *Order) GetTotalAmountMajor() float64 {
	return float64(o.TotalAmount) / 100
}
