package router

import (
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/payments"
	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
)

type ProcessPayment struct {
	// Token produced by the Square Web Payments SDK
	SourceId string          `json:"sourceId"`
	Amount   decimal.Decimal `json:"amount"`
}

func (p *ProcessPayment) ToController() (req payments.Request) {
	return payments.Request{
		SourceId: p.SourceId,
		Amount:   p.Amount,
	}
}

type (
	Response struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Data    any    `json:"data,omitempty"`
		Error   string `json:"error,omitempty"`
		// Only in debug mode
		Debug string `json:"debug,omitempty"`
	}
	ProcessedPayment struct {
		OrderId   uuid.UUID       `json:"order_id"`
		PaymentId string          `json:"payment_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	Record struct {
		PaymentId string               `json:"payment_id"`
		Status    storage.RecordStatus `json:"status"`
		Amount    decimal.Decimal      `json:"amount"`
		Currency  string               `json:"currency"`
		CreatedAt time.Time            `json:"created_at"`
	}
	Payment struct {
		OrderId   uuid.UUID           `json:"order_id"`
		Status    storage.OrderStatus `json:"status"`
		Amount    decimal.Decimal     `json:"amount"`
		CreatedAt time.Time           `json:"created_at"`
		UpdatedAt time.Time           `json:"updated_at"`
		Payment   *Record             `json:"payment,omitempty"`
	}
	// Settings the browser needs to tokenize cards
	Checkout struct {
		ApplicationId string `json:"application_id"`
		LocationId    string `json:"location_id"`
		Environment   string `json:"environment"`
	}
)

func ProcessedFromController(src *payments.Result) (out ProcessedPayment) {
	return ProcessedPayment{
		OrderId:   src.OrderId,
		PaymentId: src.GatewayId,
		Amount:    src.Amount,
	}
}

// Convert from the controller's Payment hiding the gateway metadata
func PaymentFromController(src *payments.Payment) (payment Payment) {
	payment = Payment{
		OrderId:   src.Order.Id,
		Status:    src.Order.Status,
		Amount:    src.Order.Amount,
		CreatedAt: src.Order.CreatedAt,
		UpdatedAt: src.Order.UpdatedAt,
	}
	if src.Record != nil {
		payment.Payment = &Record{
			PaymentId: src.Record.GatewayTransactionId,
			Status:    src.Record.Status,
			Amount:    src.Record.Amount,
			Currency:  src.Record.Currency,
			CreatedAt: src.Record.CreatedAt,
		}
	}
	return payment
}
