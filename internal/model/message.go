package model

// ActivationJob auto-activation job published by the order sync loop and
// consumed by the activation consumer.
type ActivationJob struct {
	OrderID    uint64 `json:"order_id"`    // internal order id
	OrderNo    string `json:"order_no"`    // admin-facing order number
	ExternalID string `json:"external_id"` // marketplace order id
	Requested  int64  `json:"requested"`   // unix timestamp the job was queued
	TraceID    string `json:"trace_id"`    // trace id
}

// NotificationEvent live notification set update for SPA subscribers.
type NotificationEvent struct {
	Unread        int64          `json:"unread"`
	Notifications []Notification `json:"notifications"`
	Timestamp     int64          `json:"timestamp"`
}

// UnreadEvent per-order unread chat count for SPA subscribers.
type UnreadEvent struct {
	ExternalOrderID string `json:"external_order_id"`
	Unread          int    `json:"unread"`
	Timestamp       int64  `json:"timestamp"`
}
