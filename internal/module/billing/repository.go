package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the persistence boundary of the billing module.
// Every upsert is an atomic insert-or-update keyed by the resource's
// Stripe ID, so redelivered events can never create duplicate rows.
type Repository interface {
	// Upserts keyed by external ID
	UpsertCustomer(ctx context.Context, cust *Customer) error
	UpsertSubscription(ctx context.Context, sub *Subscription) error
	MarkSubscriptionDeleted(ctx context.Context, stripeSubscriptionID string) error
	UpsertInvoice(ctx context.Context, inv *Invoice) error
	UpsertPaymentIntent(ctx context.Context, pi *PaymentIntent) error

	// User resolution
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByStripeCustomerID(ctx context.Context, customerID string) (*User, error)

	// Webhook event journal
	CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error
	WebhookEventExists(ctx context.Context, eventID string) (bool, error)
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Upserts ---

func (r *repository) UpsertCustomer(ctx context.Context, cust *Customer) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "description", "updated_at"}),
		}).
		Create(cust).Error
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (r *repository) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "user_id", "status", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *repository) MarkSubscriptionDeleted(ctx context.Context, stripeSubscriptionID string) error {
	sub := &Subscription{
		StripeSubscriptionID: stripeSubscriptionID,
		Status:               SubscriptionStatusDeleted,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("mark subscription deleted: %w", err)
	}
	return nil
}

func (r *repository) UpsertInvoice(ctx context.Context, inv *Invoice) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
		}).
		Create(inv).Error
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

func (r *repository) UpsertPaymentIntent(ctx context.Context, pi *PaymentIntent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_payment_intent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount", "currency", "stripe_customer_id", "status", "metadata", "updated_at",
			}),
		}).
		Create(pi).Error
	if err != nil {
		return fmt.Errorf("upsert payment intent: %w", err)
	}
	return nil
}

// --- User resolution ---

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (r *repository) FindUserByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).First(&user, "stripe_customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by stripe customer id: %w", err)
	}
	return &user, nil
}

// --- Webhook event journal ---

func (r *repository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (r *repository) WebhookEventExists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check webhook event exists: %w", err)
	}
	return count > 0, nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": gorm.Expr("NOW()"),
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	err := r.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
