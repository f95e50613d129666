package squareapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error categories returned by the API
const (
	CategoryApiError             = "API_ERROR"
	CategoryAuthenticationError  = "AUTHENTICATION_ERROR"
	CategoryInvalidRequestError  = "INVALID_REQUEST_ERROR"
	CategoryPaymentMethodError   = "PAYMENT_METHOD_ERROR"
	CategoryRateLimitError       = "RATE_LIMIT_ERROR"
	CategoryRefundError          = "REFUND_ERROR"
	CategoryMerchantSubscription = "MERCHANT_SUBSCRIPTION_ERROR"
)

// Payment statuses
const (
	PaymentApproved  = "APPROVED"
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentCanceled  = "CANCELED"
	PaymentFailed    = "FAILED"
)

type (
	Money struct {
		// Smallest denomination of the currency
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	Error struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail,omitempty"`
		Field    string `json:"field,omitempty"`
	}
	CreatePaymentRequest struct {
		SourceId       string `json:"source_id"`
		IdempotencyKey string `json:"idempotency_key"`
		AmountMoney    Money  `json:"amount_money"`
		LocationId     string `json:"location_id,omitempty"`
		ReferenceId    string `json:"reference_id,omitempty"`
		Autocomplete   bool   `json:"autocomplete"`
		Note           string `json:"note,omitempty"`
	}
	Payment struct {
		Id          string `json:"id"`
		Status      string `json:"status"`
		AmountMoney Money  `json:"amount_money"`
		LocationId  string `json:"location_id,omitempty"`
		OrderId     string `json:"order_id,omitempty"`
		ReferenceId string `json:"reference_id,omitempty"`
		ReceiptUrl  string `json:"receipt_url,omitempty"`
		CreatedAt   string `json:"created_at,omitempty"`
		UpdatedAt   string `json:"updated_at,omitempty"`
	}
	CreatePaymentResponse struct {
		Payment *Payment `json:"payment,omitempty"`
		Errors  []Error  `json:"errors,omitempty"`
		// Body as received
		Raw json.RawMessage `json:"-"`
	}
)

// APIError is returned when Square answered with a non 2xx status
type APIError struct {
	StatusCode int
	Errors     []Error
	// Present when the request reached the card network, for example on declines
	Payment *Payment
	Raw     json.RawMessage
}

func (e *APIError) Error() (s string) {
	var details []string
	for _, apiErr := range e.Errors {
		details = append(details, fmt.Sprintf("%s/%s: %s", apiErr.Category, apiErr.Code, apiErr.Detail))
	}
	return fmt.Sprintf("square api returned %d: %s", e.StatusCode, strings.Join(details, "; "))
}

// HasCategory reports if any of the errors belongs to one of the categories
func (e *APIError) HasCategory(categories ...string) (found bool) {
	for _, apiErr := range e.Errors {
		for _, category := range categories {
			if apiErr.Category == category {
				return true
			}
		}
	}
	return false
}
