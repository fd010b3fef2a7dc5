package models

import (
	"time"

	"github.com/ngduyd/ecommerce-payments/pkg/database"
)

// Notification sources.
const (
	NotificationSourceReturn  = "return"
	NotificationSourceIPN     = "ipn"
	NotificationSourceWebhook = "webhook"
)

// PaymentNotification is an audit row for every inbound provider
// notification (IPN, webhook, return redirect). Reconciliation
// idempotency does not depend on it; it exists so duplicate or
// out-of-order deliveries can be diagnosed after the fact.
type PaymentNotification struct {
	ID            uint   `gorm:"primaryKey"`
	Provider      string `gorm:"size:20;index"`
	Source        string `gorm:"size:20"` // return, ipn, webhook
	TransactionID string `gorm:"size:100;index"`
	Payload       string `gorm:"type:text"`
	Outcome       string `gorm:"size:100"`
	CreatedAt     time.Time
}

func (n *PaymentNotification) TableName() string {
	return "payment_notifications"
}

func init() {
	database.RegisterAutoMigrateModels(&PaymentNotification{})
}
