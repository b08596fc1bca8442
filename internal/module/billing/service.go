package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type eventHandler func(ctx context.Context, event *stripe.Event) error

// Service maps verified Stripe webhook events onto local database
// upserts. It is stateless between deliveries.
type Service struct {
	repo     Repository
	logger   *zap.Logger
	handlers map[EventType]eventHandler
}

// NewService creates the billing service and registers one handler per
// handled event type.
func NewService(repo Repository, logger *zap.Logger) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
	}
	s.handlers = map[EventType]eventHandler{
		EventCustomerCreated:         s.handleCustomerCreated,
		EventSubscriptionCreated:     s.handleSubscriptionCreated,
		EventSubscriptionDeleted:     s.handleSubscriptionDeleted,
		EventInvoicePaid:             s.handleInvoice,
		EventInvoiceUpdated:          s.handleInvoice,
		EventInvoicePaymentSucceeded: s.handleInvoice,
		EventPaymentIntentSucceeded:  s.handlePaymentIntentSucceeded,
	}

	// Every enumerated type must have a handler. A miss here is a
	// programming error, caught at startup rather than on first delivery.
	for _, t := range HandledEventTypes() {
		if _, ok := s.handlers[t]; !ok {
			panic(fmt.Sprintf("billing: no handler registered for event type %q", t))
		}
	}

	return s
}

// Handles reports whether the service has a handler for the event type.
func (s *Service) Handles(t EventType) bool {
	_, ok := s.handlers[t]
	return ok
}

// ProcessEvent routes a verified event to its handler. Unrecognized
// types are logged and ignored; the delivery must still be acknowledged.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	handler, ok := s.handlers[EventType(event.Type)]
	if !ok {
		s.logger.Debug("unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
		)
		return nil
	}
	return handler(ctx, event)
}

// --- Per-type handlers ---

func (s *Service) handleCustomerCreated(ctx context.Context, event *stripe.Event) error {
	data, err := decodeCustomerEvent(event.Data.Raw)
	if err != nil {
		s.logExtractionFailure(event, err)
		return nil
	}

	cust := &Customer{
		StripeCustomerID: data.CustomerID,
		Email:            data.Email,
		Name:             data.Name,
		Description:      data.Description,
	}
	if err := s.repo.UpsertCustomer(ctx, cust); err != nil {
		return err
	}

	s.logger.Info("customer record upserted",
		zap.String("event_id", event.ID),
		zap.String("stripe_customer_id", data.CustomerID),
	)
	return nil
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, event *stripe.Event) error {
	data, err := decodeSubscriptionEvent(event.Data.Raw, true)
	if err != nil {
		s.logExtractionFailure(event, err)
		return nil
	}

	sub := &Subscription{
		StripeSubscriptionID: data.SubscriptionID,
		StripeCustomerID:     data.CustomerID,
		Status:               SubscriptionStatusActive,
	}

	// Attach the local user when the customer is known; an unknown
	// customer does not block the upsert.
	user, err := s.repo.FindUserByStripeCustomerID(ctx, data.CustomerID)
	switch {
	case err == nil:
		sub.UserID = &user.ID
	case errors.Is(err, ErrUserNotFound):
		s.logger.Debug("no local user for stripe customer",
			zap.String("event_id", event.ID),
			zap.String("stripe_customer_id", data.CustomerID),
		)
	default:
		return err
	}

	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return err
	}

	s.logger.Info("subscription record upserted",
		zap.String("event_id", event.ID),
		zap.String("stripe_subscription_id", data.SubscriptionID),
		zap.String("status", SubscriptionStatusActive),
	)
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	data, err := decodeSubscriptionEvent(event.Data.Raw, false)
	if err != nil {
		s.logExtractionFailure(event, err)
		return nil
	}

	if err := s.repo.MarkSubscriptionDeleted(ctx, data.SubscriptionID); err != nil {
		return err
	}

	s.logger.Info("subscription record upserted",
		zap.String("event_id", event.ID),
		zap.String("stripe_subscription_id", data.SubscriptionID),
		zap.String("status", SubscriptionStatusDeleted),
	)
	return nil
}

// handleInvoice covers invoice.paid, invoice.updated and
// invoice.payment_succeeded; all three refresh the same fields.
func (s *Service) handleInvoice(ctx context.Context, event *stripe.Event) error {
	data, err := decodeInvoiceEvent(event.Data.Raw)
	if err != nil {
		s.logExtractionFailure(event, err)
		return nil
	}

	user, err := s.repo.FindUserByEmail(ctx, data.CustomerEmail)
	if errors.Is(err, ErrUserNotFound) {
		// Nothing to attach the invoice to; acknowledged as a no-op so
		// Stripe does not retry. The journal keeps the payload replayable.
		s.logger.Warn("no local user for invoice customer email",
			zap.String("event_id", event.ID),
			zap.String("stripe_invoice_id", data.InvoiceID),
			zap.String("customer_email", data.CustomerEmail),
		)
		return nil
	}
	if err != nil {
		return err
	}

	inv := &Invoice{
		StripeInvoiceID: data.InvoiceID,
		UserID:          &user.ID,
	}
	if err := s.repo.UpsertInvoice(ctx, inv); err != nil {
		return err
	}

	s.logger.Info("invoice record upserted",
		zap.String("event_id", event.ID),
		zap.String("stripe_invoice_id", data.InvoiceID),
	)
	return nil
}

func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	data, err := decodePaymentIntentEvent(event.Data.Raw)
	if err != nil {
		s.logExtractionFailure(event, err)
		return nil
	}

	metadata, err := json.Marshal(data.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	pi := &PaymentIntent{
		StripePaymentIntentID: data.PaymentIntentID,
		Amount:                data.Amount,
		Currency:              data.Currency,
		StripeCustomerID:      data.CustomerID,
		Status:                data.Status,
		Metadata:              string(metadata),
	}
	if err := s.repo.UpsertPaymentIntent(ctx, pi); err != nil {
		return err
	}

	s.logger.Info("payment intent record upserted",
		zap.String("event_id", event.ID),
		zap.String("stripe_payment_intent_id", data.PaymentIntentID),
		zap.Int64("amount", data.Amount),
	)
	return nil
}

// logExtractionFailure records a payload the handler could not use. The
// delivery is still acknowledged; only this handler aborts.
func (s *Service) logExtractionFailure(event *stripe.Event, err error) {
	s.logger.Warn("webhook payload extraction failed",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Error(err),
	)
}
