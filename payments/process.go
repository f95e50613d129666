package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/storage"
	"github.com/google/uuid"
)

// States an attempt goes through. Used as the "state" log attribute
type State string

const (
	StateStarted      State = "started"
	StateOrderCreated State = "order-created"
	StateCharging     State = "charging"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

type (
	Request struct {
		// Token produced by the client side tokenizer. Never inspected
		SourceId string
		// Amount in major units
		Amount decimal.Decimal
	}
	Result struct {
		OrderId   uuid.UUID
		GatewayId string
		Amount    decimal.Decimal
		Status    storage.OrderStatus
	}
)

func (c *Controller) validate(req Request) (units int64, err error) {
	if strings.TrimSpace(req.SourceId) == "" {
		return 0, validationError("sourceId is required")
	}
	if req.Amount.ExceedsPlaces() {
		return 0, validationError("amount must have at most %d decimal places", decimal.Places)
	}

	err = req.Amount.Validate(c.maxAmount)
	if err != nil {
		return 0, validationError("amount must be greater than 0 and not exceed %s", c.maxAmount)
	}

	units, err = req.Amount.ToMinorUnits()
	if err != nil {
		return 0, validationError("amount must be greater than 0 and not exceed %s", c.maxAmount)
	}
	return units, nil
}

func convertStatus(status gateways.Status) (s storage.RecordStatus) {
	switch status {
	case gateways.StatusCompleted:
		return storage.RecordStatusCompleted
	case gateways.StatusFailed:
		return storage.RecordStatusFailed
	default:
		return storage.RecordStatusPending
	}
}

// Marks the order failed after the gateway refused or could not be reached
func (c *Controller) fail(ctx context.Context, logger *slog.Logger, order storage.Order, chargeErr error) (err error) {
	payErr := &PaymentError{OrderId: order.Id, Err: chargeErr}
	if decline, ok := gateways.IsDecline(chargeErr); ok {
		payErr.Kind = ErrPaymentFailed
		payErr.Detail = decline.Detail
		if payErr.Detail == "" {
			payErr.Detail = MessageDeclined
		}
		logger.Info("payment declined", "state", StateFailed, "code", decline.Code, "detail", decline.Detail)
	} else {
		// Anything that is not a decline leaves the outcome unknown
		payErr.Kind = ErrGatewayUnavailable
		payErr.Detail = MessageUnavailable
		logger.Warn("payment gateway unavailable", "state", StateFailed, "error", chargeErr)
	}

	err = c.storage.UpdateOrderStatus(ctx, order.Id, storage.OrderStatusFailed)
	if err != nil {
		logger.Error("failed to mark order failed", "error", err)
		payErr.Err = errors.Join(chargeErr, fmt.Errorf("failed to mark order failed: %w", err))
	}
	return payErr
}

// Process charges req.Amount to the card behind req.SourceId.
//
// The order is committed pending before the gateway is called and every attempt
// ends with the order failed or completed. A charge that could not be recorded
// returns ErrReconciliation and is queued for ProcessUnreconciled
func (c *Controller) Process(ctx context.Context, req Request) (result Result, err error) {
	units, err := c.validate(req)
	if err != nil {
		return result, err
	}

	order := storage.NewOrder(req.Amount)
	logger := c.logger.With("order", order.Id.String())
	logger.Debug("payment started", "state", StateStarted, "amount", order.Amount.String())

	err = c.storage.CreateOrder(ctx, order)
	if err != nil {
		logger.Error("failed to create order", "error", err)
		return result, &PaymentError{
			Kind:   ErrPersistence,
			Detail: MessagePersistence,
			Err:    fmt.Errorf("failed to create order: %w", err),
		}
	}
	logger.Debug("order created", "state", StateOrderCreated)

	logger.Debug("charging", "state", StateCharging)
	charge, err := c.gateway.Charge(ctx, gateways.ChargeRequest{
		SourceToken:    req.SourceId,
		Amount:         units,
		Currency:       string(c.currency),
		LocationId:     c.locationId,
		IdempotencyKey: IdempotencyKey(order.Id),
		ReferenceId:    order.Id.String(),
	})

	// The payer leaving must not strand the order
	persistCtx := context.WithoutCancel(ctx)
	if err != nil {
		return result, c.fail(persistCtx, logger, order, err)
	}

	record := storage.PaymentRecord{
		Id:                   uuid.New(),
		OrderId:              order.Id,
		GatewayTransactionId: charge.Id,
		Amount:               decimal.FromMinorUnits(charge.Amount),
		Currency:             charge.Currency,
		Status:               convertStatus(charge.Status),
		Metadata:             charge.Raw,
		CreatedAt:            time.Now().UTC(),
	}
	if record.Currency == "" {
		record.Currency = string(c.currency)
	}
	if len(record.Metadata) == 0 || !json.Valid(record.Metadata) {
		record.Metadata = nil
	}

	if record.Currency != string(c.currency) {
		err = fmt.Errorf("%w: charged %s, expected %s", storage.ErrCurrencyMismatch, record.Currency, c.currency)
	} else {
		err = c.storage.CompleteOrder(persistCtx, record)
	}
	if err != nil {
		logger.Error("charge succeeded but could not be recorded",
			"state", StateFailed,
			"gateway_id", charge.Id,
			"amount", order.Amount.String(),
			"charged", record.Amount.String(),
			"currency", record.Currency,
			"error", err,
		)

		// The sweep stores queued records as they are
		if !errors.Is(err, storage.ErrCurrencyMismatch) {
			saveErr := c.storage.SaveUnreconciled(persistCtx, record)
			if saveErr != nil {
				logger.Error("failed to queue unreconciled charge", "gateway_id", charge.Id, "error", saveErr)
				err = errors.Join(err, fmt.Errorf("failed to queue unreconciled charge: %w", saveErr))
			}
		}

		return result, &PaymentError{
			Kind:      ErrReconciliation,
			OrderId:   order.Id,
			GatewayId: charge.Id,
			Detail:    fmt.Sprintf("Payment was received but could not be confirmed. Reference: %s", order.Id),
			Err:       fmt.Errorf("failed to complete order: %w", err),
		}
	}

	logger.Info("payment completed", "state", StateCompleted, "gateway_id", charge.Id, "amount", order.Amount.String())
	result = Result{
		OrderId:   order.Id,
		GatewayId: charge.Id,
		Amount:    order.Amount,
		Status:    storage.OrderStatusCompleted,
	}
	return result, nil
}
