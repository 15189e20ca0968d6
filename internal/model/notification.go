package model

import (
	"time"
)

// Notification kinds
const (
	// NotificationKindConfiguration produced and reconciled by the
	// configuration monitor, keyed by a stable reason id.
	NotificationKindConfiguration int8 = 1
	// NotificationKindWorkflow produced by workflow failures (for example a
	// write action rejected upstream with configuration-required).
	NotificationKindWorkflow int8 = 2
)

// Stable reason ids for configuration notifications. Reconcile cycles merge
// on these, so they must never change once shipped.
const (
	ReasonMissingUpstreamCredentials = "missing-upstream-credentials"
	ReasonMissingCampaignID          = "missing-campaign-id"
	ReasonMissingMailTransport       = "missing-mail-transport"
)

// ReasonUpstreamConfigurationRequired marks a workflow notification raised
// when the marketplace rejects a write action until the account is
// configured. Distinct from the reconciled configuration reasons above.
const ReasonUpstreamConfigurationRequired = "upstream-configuration-required"

// Notification an operator-facing notification. Configuration notifications
// keep their identity and read flag across reconcile cycles.
type Notification struct {
	ID        uint64    `gorm:"primaryKey;comment:notification ID" json:"id"`
	Kind      int8      `gorm:"type:tinyint;not null;index;comment:kind: 1-configuration 2-workflow" json:"kind"`
	Reason    *string   `gorm:"type:varchar(64);uniqueIndex;comment:stable reason id for configuration kind" json:"reason,omitempty"`
	Title     string    `gorm:"type:varchar(200);not null;comment:title" json:"title"`
	Message   string    `gorm:"type:varchar(500);not null;comment:message body" json:"message"`
	Read      bool      `gorm:"not null;default:false;index;comment:operator has read it" json:"read"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:creation time" json:"created_at"`
}

// TableName set name
func (Notification) TableName() string {
	return "notifications"
}

// IsConfiguration check notification is configuration kind
func (n *Notification) IsConfiguration() bool {
	return n.Kind == NotificationKindConfiguration
}
