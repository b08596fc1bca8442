package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandledEventTypes(t *testing.T) {
	types := HandledEventTypes()
	assert.Len(t, types, 7)

	seen := make(map[EventType]bool)
	for _, et := range types {
		assert.False(t, seen[et], "duplicate event type %q", et)
		seen[et] = true
	}
}

func TestDecodeSubscriptionEvent(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		requireCustomer bool
		wantErr         error
		wantSub         string
		wantCustomer    string
	}{
		{
			name:            "full payload",
			raw:             `{"id": "sub_1", "customer": "cus_1", "status": "active"}`,
			requireCustomer: true,
			wantSub:         "sub_1",
			wantCustomer:    "cus_1",
		},
		{
			name:            "missing subscription id",
			raw:             `{"customer": "cus_1"}`,
			requireCustomer: true,
			wantErr:         ErrMissingField,
		},
		{
			name:            "missing customer when required",
			raw:             `{"id": "sub_1"}`,
			requireCustomer: true,
			wantErr:         ErrMissingField,
		},
		{
			name:            "missing customer tolerated for deletion",
			raw:             `{"id": "sub_1"}`,
			requireCustomer: false,
			wantSub:         "sub_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := decodeSubscriptionEvent(json.RawMessage(tt.raw), tt.requireCustomer)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, data.SubscriptionID)
			assert.Equal(t, tt.wantCustomer, data.CustomerID)
		})
	}
}

func TestDecodeInvoiceEvent(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		data, err := decodeInvoiceEvent(json.RawMessage(`{"id": "in_1", "customer_email": "jane@example.com"}`))
		require.NoError(t, err)
		assert.Equal(t, "in_1", data.InvoiceID)
		assert.Equal(t, "jane@example.com", data.CustomerEmail)
	})

	t.Run("missing customer email", func(t *testing.T) {
		_, err := decodeInvoiceEvent(json.RawMessage(`{"id": "in_1"}`))
		require.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing invoice id", func(t *testing.T) {
		_, err := decodeInvoiceEvent(json.RawMessage(`{"customer_email": "jane@example.com"}`))
		require.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := decodeInvoiceEvent(json.RawMessage(`{`))
		require.Error(t, err)
	})
}

func TestDecodePaymentIntentEvent(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := `{
			"id": "pi_1",
			"amount_received": 2000,
			"currency": "usd",
			"customer": "cus_1",
			"status": "succeeded",
			"metadata": {"order": "ord_9"}
		}`
		data, err := decodePaymentIntentEvent(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, "pi_1", data.PaymentIntentID)
		assert.Equal(t, int64(2000), data.Amount)
		assert.Equal(t, "usd", data.Currency)
		assert.Equal(t, "cus_1", data.CustomerID)
		assert.Equal(t, "succeeded", data.Status)
		assert.Equal(t, map[string]string{"order": "ord_9"}, data.Metadata)
	})

	t.Run("missing metadata defaults to empty map", func(t *testing.T) {
		data, err := decodePaymentIntentEvent(json.RawMessage(`{"id": "pi_1"}`))
		require.NoError(t, err)
		assert.NotNil(t, data.Metadata)
		assert.Empty(t, data.Metadata)
	})

	t.Run("missing payment intent id", func(t *testing.T) {
		_, err := decodePaymentIntentEvent(json.RawMessage(`{"amount_received": 2000}`))
		require.ErrorIs(t, err, ErrMissingField)
	})
}

func TestDecodeCustomerEvent(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := `{
			"id": "cus_1",
			"email": "jane@example.com",
			"name": "Jane Doe",
			"description": "test customer"
		}`
		data, err := decodeCustomerEvent(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, "cus_1", data.CustomerID)
		assert.Equal(t, "jane@example.com", data.Email)
		assert.Equal(t, "Jane Doe", data.Name)
		assert.Equal(t, "test customer", data.Description)
	})

	t.Run("missing customer id", func(t *testing.T) {
		_, err := decodeCustomerEvent(json.RawMessage(`{"email": "jane@example.com"}`))
		require.ErrorIs(t, err, ErrMissingField)
	})
}
