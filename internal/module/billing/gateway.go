package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// GatewayConfig holds the Stripe API credentials for outbound calls.
type GatewayConfig struct {
	APIKey string
}

// Gateway is a stateless façade over the Stripe REST API, one method per
// operation. It holds no local state beyond the configured client.
type Gateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewGateway creates a gateway with an immutable client configuration.
func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	return &Gateway{
		api:    api,
		logger: logger,
	}
}

// --- Customers ---

// CreateCustomer creates a Stripe customer. Name and description are
// optional.
func (g *Gateway) CreateCustomer(ctx context.Context, email, name, description string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	if name != "" {
		params.Name = stripe.String(name)
	}
	if description != "" {
		params.Description = stripe.String(description)
	}

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return nil, g.wrapErr("create customer", err)
	}
	return cust, nil
}

// RetrieveCustomer retrieves a customer by its Stripe ID.
func (g *Gateway) RetrieveCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, g.wrapErr("retrieve customer", err)
	}
	return cust, nil
}

// DeleteCustomer deletes a customer by its Stripe ID.
func (g *Gateway) DeleteCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := g.api.Customers.Del(customerID, params)
	if err != nil {
		return nil, g.wrapErr("delete customer", err)
	}
	return cust, nil
}

// --- Payment Intents ---

// CreatePaymentIntent creates a payment intent. Amount is in minor
// currency units; customerID and description are optional.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID, description string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	if description != "" {
		params.Description = stripe.String(description)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, g.wrapErr("create payment intent", err)
	}
	return pi, nil
}

// --- Subscriptions ---

// CreateSubscription subscribes a customer to a price. A trialDays of
// zero means no trial period.
func (g *Gateway) CreateSubscription(ctx context.Context, customerID, priceID string, trialDays int64) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx
	if trialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(trialDays)
	}

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, g.wrapErr("create subscription", err)
	}
	return sub, nil
}

// RetrieveSubscription retrieves a subscription by its Stripe ID.
func (g *Gateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, g.wrapErr("retrieve subscription", err)
	}
	return sub, nil
}

// CancelSubscription cancels a subscription immediately.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return nil, g.wrapErr("cancel subscription", err)
	}
	return sub, nil
}

// --- Invoices ---

// CreateInvoice creates an auto-finalizing invoice for a customer.
func (g *Gateway) CreateInvoice(ctx context.Context, customerID, description string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{
		Customer:    stripe.String(customerID),
		AutoAdvance: stripe.Bool(true),
	}
	params.Context = ctx
	if description != "" {
		params.Description = stripe.String(description)
	}

	inv, err := g.api.Invoices.New(params)
	if err != nil {
		return nil, g.wrapErr("create invoice", err)
	}
	return inv, nil
}

// RetrieveInvoice retrieves an invoice by its Stripe ID.
func (g *Gateway) RetrieveInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx

	inv, err := g.api.Invoices.Get(invoiceID, params)
	if err != nil {
		return nil, g.wrapErr("retrieve invoice", err)
	}
	return inv, nil
}

// wrapErr classifies a Stripe client error so callers can distinguish
// "not found" and "upstream down" from plain API rejections.
func (g *Gateway) wrapErr(op string, err error) error {
	g.logger.Warn("stripe call failed", zap.String("op", op), zap.Error(err))

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch {
		case sErr.Code == stripe.ErrorCodeResourceMissing || sErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case sErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// Anything that is not a stripe.Error is a transport failure.
	return fmt.Errorf("%s: %w", op, ErrGatewayUnavailable)
}
