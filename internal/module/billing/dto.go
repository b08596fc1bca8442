package billing

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreatePaymentIntentRequest is the request body for creating a payment
// intent. Amount is in minor currency units.
type CreatePaymentIntentRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required"`
	CustomerID  string `json:"customer_id"`
	Description string `json:"description"`
}

// CreateSubscriptionRequest is the request body for creating a subscription.
type CreateSubscriptionRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	PriceID    string `json:"price_id" binding:"required"`
	TrialDays  int64  `json:"trial_days"`
}

// CreateInvoiceRequest is the request body for creating an invoice.
type CreateInvoiceRequest struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	Description string `json:"description"`
}
