package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// --- Mock Implementations ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertCustomer(ctx context.Context, cust *Customer) error {
	args := m.Called(ctx, cust)
	return args.Error(0)
}

func (m *MockRepository) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) MarkSubscriptionDeleted(ctx context.Context, stripeSubscriptionID string) error {
	args := m.Called(ctx, stripeSubscriptionID)
	return args.Error(0)
}

func (m *MockRepository) UpsertInvoice(ctx context.Context, inv *Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockRepository) UpsertPaymentIntent(ctx context.Context, pi *PaymentIntent) error {
	args := m.Called(ctx, pi)
	return args.Error(0)
}

func (m *MockRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindUserByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) WebhookEventExists(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	args := m.Called(ctx, eventID, processErr)
	return args.Error(0)
}

// --- Helpers ---

func newTestEvent(t *testing.T, id string, eventType EventType, object string) *stripe.Event {
	t.Helper()
	payload := fmt.Sprintf(`{"id": %q, "type": %q, "data": {"object": %s}}`, id, string(eventType), object)
	var event stripe.Event
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	return &event
}

// --- Tests ---

func TestNewServiceRegistersAllHandledTypes(t *testing.T) {
	service := NewService(new(MockRepository), zap.NewNop())
	for _, et := range HandledEventTypes() {
		assert.True(t, service.Handles(et), "missing handler for %q", et)
	}
	assert.False(t, service.Handles(EventType("charge.dispute.created")))
}

func TestProcessEventUnknownTypeIsNoOp(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	event := newTestEvent(t, "evt_1", EventType("charge.dispute.created"), `{"id": "dp_1"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpsertCustomer", mock.Anything, mock.Anything)
}

func TestProcessEventCustomerCreated(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	repo.On("UpsertCustomer", mock.Anything, mock.MatchedBy(func(c *Customer) bool {
		return c.StripeCustomerID == "cus_1" && c.Email == "jane@example.com" && c.Name == "Jane Doe"
	})).Return(nil)

	event := newTestEvent(t, "evt_1", EventCustomerCreated,
		`{"id": "cus_1", "email": "jane@example.com", "name": "Jane Doe"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventSubscriptionCreatedAttachesKnownUser(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	userID := uuid.New()
	repo.On("FindUserByStripeCustomerID", mock.Anything, "cus_1").
		Return(&User{ID: userID, Email: "jane@example.com", StripeCustomerID: "cus_1"}, nil)
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub *Subscription) bool {
		return sub.StripeSubscriptionID == "sub_1" &&
			sub.StripeCustomerID == "cus_1" &&
			sub.Status == SubscriptionStatusActive &&
			sub.UserID != nil && *sub.UserID == userID
	})).Return(nil)

	event := newTestEvent(t, "evt_1", EventSubscriptionCreated,
		`{"id": "sub_1", "customer": "cus_1", "status": "active"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventSubscriptionCreatedUnknownCustomer(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	repo.On("FindUserByStripeCustomerID", mock.Anything, "cus_stranger").
		Return(nil, ErrUserNotFound)
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(sub *Subscription) bool {
		return sub.StripeSubscriptionID == "sub_1" && sub.UserID == nil
	})).Return(nil)

	event := newTestEvent(t, "evt_1", EventSubscriptionCreated,
		`{"id": "sub_1", "customer": "cus_stranger"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventSubscriptionDeleted(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	repo.On("MarkSubscriptionDeleted", mock.Anything, "sub_1").Return(nil)

	event := newTestEvent(t, "evt_1", EventSubscriptionDeleted, `{"id": "sub_1"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventInvoicePaid(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	userID := uuid.New()
	repo.On("FindUserByEmail", mock.Anything, "jane@example.com").
		Return(&User{ID: userID, Email: "jane@example.com"}, nil)
	repo.On("UpsertInvoice", mock.Anything, mock.MatchedBy(func(inv *Invoice) bool {
		return inv.StripeInvoiceID == "in_1" && inv.UserID != nil && *inv.UserID == userID
	})).Return(nil)

	event := newTestEvent(t, "evt_1", EventInvoicePaid,
		`{"id": "in_1", "customer_email": "jane@example.com"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventInvoiceUnknownEmailIsNoOp(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	repo.On("FindUserByEmail", mock.Anything, "stranger@example.com").
		Return(nil, ErrUserNotFound)

	event := newTestEvent(t, "evt_1", EventInvoicePaid,
		`{"id": "in_1", "customer_email": "stranger@example.com"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpsertInvoice", mock.Anything, mock.Anything)
}

func TestProcessEventInvoiceMissingEmailIsNoOp(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	event := newTestEvent(t, "evt_1", EventInvoicePaymentSucceeded, `{"id": "in_1"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "FindUserByEmail", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertInvoice", mock.Anything, mock.Anything)
}

func TestProcessEventPaymentIntentSucceeded(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	repo.On("UpsertPaymentIntent", mock.Anything, mock.MatchedBy(func(pi *PaymentIntent) bool {
		return pi.StripePaymentIntentID == "pi_1" &&
			pi.Amount == 2000 &&
			pi.Currency == "usd" &&
			pi.StripeCustomerID == "cus_1" &&
			pi.Status == "succeeded" &&
			pi.Metadata == "{}"
	})).Return(nil)

	event := newTestEvent(t, "evt_1", EventPaymentIntentSucceeded,
		`{"id": "pi_1", "amount_received": 2000, "currency": "usd", "customer": "cus_1", "status": "succeeded", "metadata": {}}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessEventExtractionFailureIsNoOp(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	// No "id" in the object: the handler aborts without touching the store.
	event := newTestEvent(t, "evt_1", EventPaymentIntentSucceeded, `{"amount_received": 2000}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "UpsertPaymentIntent", mock.Anything, mock.Anything)
}

func TestProcessEventPersistenceFailurePropagates(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, zap.NewNop())

	dbErr := errors.New("connection reset")
	repo.On("UpsertCustomer", mock.Anything, mock.Anything).Return(dbErr)

	event := newTestEvent(t, "evt_1", EventCustomerCreated, `{"id": "cus_1"}`)
	err := service.ProcessEvent(context.Background(), event)

	assert.ErrorIs(t, err, dbErr)
	repo.AssertExpectations(t)
}
