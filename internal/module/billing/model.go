package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses tracked locally. The status reflects the last
// webhook event observed for the subscription.
const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusDeleted = "deleted"
)

// User is the local account a Stripe customer maps onto. Webhook handlers
// resolve users by email (invoices) or by stored Stripe customer ID
// (subscriptions).
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email            string    `gorm:"uniqueIndex;not null"`
	Name             string
	StripeCustomerID string `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// Customer mirrors a Stripe customer, keyed by its Stripe ID.
type Customer struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StripeCustomerID string    `gorm:"uniqueIndex;not null"`
	Email            string
	Name             string
	Description      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the database table name.
func (Customer) TableName() string {
	return "customers"
}

// Subscription mirrors a Stripe subscription, keyed by its Stripe ID.
type Subscription struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StripeSubscriptionID string    `gorm:"uniqueIndex;not null"`
	StripeCustomerID     string    `gorm:"index"`
	UserID               *uuid.UUID `gorm:"type:uuid;index"`
	Status               string     `gorm:"not null;default:active"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the database table name.
func (Subscription) TableName() string {
	return "subscriptions"
}

// Invoice mirrors a Stripe invoice, keyed by its Stripe ID.
type Invoice struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StripeInvoiceID string    `gorm:"uniqueIndex;not null"`
	UserID          *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the database table name.
func (Invoice) TableName() string {
	return "invoices"
}

// PaymentIntent mirrors a Stripe payment intent, keyed by its Stripe ID.
// Amount is the amount received in minor currency units.
type PaymentIntent struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StripePaymentIntentID string    `gorm:"uniqueIndex;not null"`
	Amount                int64
	Currency              string
	StripeCustomerID      string `gorm:"index"`
	Status                string
	Metadata              string `gorm:"type:jsonb;default:'{}'"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName returns the database table name.
func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// WebhookEvent journals every verified Stripe delivery. The unique event
// ID makes redelivery observable; the raw payload keeps events replayable
// for reconciliation.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null"`
	Payload     string    `gorm:"type:jsonb"`
	Processed   bool      `gorm:"not null;default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
