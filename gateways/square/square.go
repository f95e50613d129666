// Package square charges cards through the Square Payments API
package square

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/internal/squareapi"
	"golang.org/x/time/rate"
)

type Config struct {
	Client *squareapi.Client
	// Location used when the request does not carry one
	LocationId string
	// Optional. Outgoing calls wait for a token
	Limiter *rate.Limiter
}

type Gateway struct {
	client     *squareapi.Client
	locationId string
	limiter    *rate.Limiter
}

var _ gateways.Gateway = (*Gateway)(nil)

func New(config Config) (g *Gateway) {
	return &Gateway{
		client:     config.Client,
		locationId: config.LocationId,
		limiter:    config.Limiter,
	}
}

func convertStatus(status string) (s gateways.Status, err error) {
	switch status {
	case squareapi.PaymentApproved, squareapi.PaymentPending:
		return gateways.StatusPending, nil
	case squareapi.PaymentCompleted:
		return gateways.StatusCompleted, nil
	case squareapi.PaymentFailed, squareapi.PaymentCanceled:
		return gateways.StatusFailed, nil
	default:
		return s, fmt.Errorf("unknown payment status: %q", status)
	}
}

func convertAPIError(apiErr *squareapi.APIError) (err error) {
	declined := apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError &&
		apiErr.HasCategory(squareapi.CategoryPaymentMethodError, squareapi.CategoryInvalidRequestError)
	if !declined {
		return fmt.Errorf("%w: %w", gateways.ErrUnavailable, apiErr)
	}

	decline := &gateways.DeclineError{Raw: apiErr.Raw}
	for _, e := range apiErr.Errors {
		if e.Category != squareapi.CategoryPaymentMethodError && e.Category != squareapi.CategoryInvalidRequestError {
			continue
		}
		decline.Category = e.Category
		decline.Code = e.Code
		decline.Detail = e.Detail
		break
	}
	if decline.Detail == "" {
		decline.Detail = decline.Code
	}
	return decline
}

func (g *Gateway) Charge(ctx context.Context, req gateways.ChargeRequest) (charge gateways.Charge, err error) {
	if req.LocationId == "" {
		req.LocationId = g.locationId
	}

	err = req.Validate()
	if err != nil {
		return charge, &gateways.DeclineError{
			Category: squareapi.CategoryInvalidRequestError,
			Code:     "BAD_REQUEST",
			Detail:   err.Error(),
		}
	}

	if g.limiter != nil {
		err = g.limiter.Wait(ctx)
		if err != nil {
			return charge, fmt.Errorf("%w: rate limiter: %w", gateways.ErrUnavailable, err)
		}
	}

	res, err := g.client.CreatePayment(ctx, &squareapi.CreatePaymentRequest{
		SourceId:       req.SourceToken,
		IdempotencyKey: req.IdempotencyKey,
		AmountMoney: squareapi.Money{
			Amount:   req.Amount,
			Currency: req.Currency,
		},
		LocationId:   req.LocationId,
		ReferenceId:  req.ReferenceId,
		Autocomplete: true,
	})
	if err != nil {
		var apiErr *squareapi.APIError
		if errors.As(err, &apiErr) {
			return charge, convertAPIError(apiErr)
		}
		return charge, fmt.Errorf("%w: %w", gateways.ErrUnavailable, err)
	}

	payment := res.Payment
	status, err := convertStatus(payment.Status)
	if err != nil {
		return charge, fmt.Errorf("%w: %w", gateways.ErrUnavailable, err)
	}
	if status == gateways.StatusFailed {
		return charge, &gateways.DeclineError{
			Category: squareapi.CategoryPaymentMethodError,
			Code:     payment.Status,
			Detail:   "Card declined",
			Raw:      res.Raw,
		}
	}

	charge = gateways.Charge{
		Id:       payment.Id,
		Status:   status,
		Amount:   payment.AmountMoney.Amount,
		Currency: payment.AmountMoney.Currency,
		Raw:      res.Raw,
	}
	if charge.Id == "" {
		return charge, fmt.Errorf("%w: payment without id", gateways.ErrUnavailable)
	}
	return charge, nil
}
