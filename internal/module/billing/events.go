package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// EventType identifies a Stripe webhook event type this service processes.
type EventType string

// The closed set of handled event types. Anything else is acknowledged
// and ignored.
const (
	EventCustomerCreated         EventType = "customer.created"
	EventSubscriptionCreated     EventType = "customer.subscription.created"
	EventSubscriptionDeleted     EventType = "customer.subscription.deleted"
	EventInvoicePaid             EventType = "invoice.paid"
	EventInvoiceUpdated          EventType = "invoice.updated"
	EventInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventPaymentIntentSucceeded  EventType = "payment_intent.succeeded"
)

// HandledEventTypes returns every event type the service has a handler for.
func HandledEventTypes() []EventType {
	return []EventType{
		EventCustomerCreated,
		EventSubscriptionCreated,
		EventSubscriptionDeleted,
		EventInvoicePaid,
		EventInvoiceUpdated,
		EventInvoicePaymentSucceeded,
		EventPaymentIntentSucceeded,
	}
}

// SubscriptionEventData is the payload extracted from subscription events.
// SubscriptionID is required; CustomerID is required only for creation.
type SubscriptionEventData struct {
	SubscriptionID string
	CustomerID     string
}

// InvoiceEventData is the payload extracted from invoice events. Both
// fields are required: the customer email is the only handle invoices
// give us to resolve a local user.
type InvoiceEventData struct {
	InvoiceID     string
	CustomerEmail string
}

// PaymentIntentEventData is the payload extracted from
// payment_intent.succeeded. PaymentIntentID is required; the rest mirror
// whatever Stripe sent.
type PaymentIntentEventData struct {
	PaymentIntentID string
	Amount          int64
	Currency        string
	CustomerID      string
	Status          string
	Metadata        map[string]string
}

// CustomerEventData is the payload extracted from customer.created.
// CustomerID is required.
type CustomerEventData struct {
	CustomerID  string
	Email       string
	Name        string
	Description string
}

func decodeSubscriptionEvent(raw json.RawMessage, requireCustomer bool) (*SubscriptionEventData, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscription: %w", err)
	}
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: subscription id", ErrMissingField)
	}

	data := &SubscriptionEventData{SubscriptionID: sub.ID}
	if sub.Customer != nil {
		data.CustomerID = sub.Customer.ID
	}
	if requireCustomer && data.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer id", ErrMissingField)
	}
	return data, nil
}

func decodeInvoiceEvent(raw json.RawMessage) (*InvoiceEventData, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("unmarshal invoice: %w", err)
	}
	if inv.ID == "" {
		return nil, fmt.Errorf("%w: invoice id", ErrMissingField)
	}
	if inv.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: customer email", ErrMissingField)
	}

	return &InvoiceEventData{
		InvoiceID:     inv.ID,
		CustomerEmail: inv.CustomerEmail,
	}, nil
}

func decodePaymentIntentEvent(raw json.RawMessage) (*PaymentIntentEventData, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, fmt.Errorf("unmarshal payment intent: %w", err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: payment intent id", ErrMissingField)
	}

	data := &PaymentIntentEventData{
		PaymentIntentID: pi.ID,
		Amount:          pi.AmountReceived,
		Currency:        string(pi.Currency),
		Status:          string(pi.Status),
		Metadata:        pi.Metadata,
	}
	if pi.Customer != nil {
		data.CustomerID = pi.Customer.ID
	}
	if data.Metadata == nil {
		data.Metadata = map[string]string{}
	}
	return data, nil
}

func decodeCustomerEvent(raw json.RawMessage) (*CustomerEventData, error) {
	var cust stripe.Customer
	if err := json.Unmarshal(raw, &cust); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}
	if cust.ID == "" {
		return nil, fmt.Errorf("%w: customer id", ErrMissingField)
	}

	return &CustomerEventData{
		CustomerID:  cust.ID,
		Email:       cust.Email,
		Name:        cust.Name,
		Description: cust.Description,
	}, nil
}
