package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/RogueTeam/cardpay/payments"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Manages the entire setup of the checkout service
type Router struct {
	// Reconciliation sweep interval. Zero disables the sweep
	ProcessInterval time.Duration
	// Payments controller
	Controller *payments.Controller
	// Served to the browser tokenizer
	Checkout Checkout
	// Include internal error details in responses
	Debug  bool
	Logger *slog.Logger
	// Base Gin Group to use for routing
	Base gin.IRoutes
}

const (
	IdParam            = "id"
	ProcessPaymentPath = "/process-payment"
	PaymentsPath       = "/payments"
	PaymentsPathWithId = PaymentsPath + "/:" + IdParam
	ConfigPath         = "/payment/config"
)

const (
	MessageSuccess        = "Payment processed successfully"
	MessageInvalidRequest = "Invalid request body"
	MessageInvalidId      = "Invalid payment id"
	MessageNotFound       = "Payment not found"
	MessageInternal       = "Internal server error"
)

func (r *Router) logger() (logger *slog.Logger) {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Router) abort(ctx *gin.Context, status int, message string, err error) {
	res := Response{Success: false, Error: message}
	if r.Debug && err != nil {
		res.Debug = err.Error()
	}
	if err != nil {
		ctx.Error(err)
	}
	ctx.AbortWithStatusJSON(status, &res)
}

func statusOf(err error) (status int, message string) {
	var payErr *payments.PaymentError
	if !errors.As(err, &payErr) {
		return http.StatusInternalServerError, MessageInternal
	}

	switch {
	case errors.Is(err, payments.ErrValidation):
		return http.StatusUnprocessableEntity, payErr.Detail
	case errors.Is(err, payments.ErrReconciliation):
		return http.StatusInternalServerError, payErr.Detail
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return http.StatusBadGateway, payErr.Detail
	case errors.Is(err, payments.ErrPaymentFailed):
		return http.StatusPaymentRequired, payErr.Detail
	default:
		return http.StatusInternalServerError, payErr.Detail
	}
}

func (r *Router) processPayment(ctx *gin.Context) {
	var req ProcessPayment
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		r.abort(ctx, http.StatusUnprocessableEntity, MessageInvalidRequest, err)
		return
	}

	result, err := r.Controller.Process(ctx.Request.Context(), req.ToController())
	if err != nil {
		status, message := statusOf(err)
		r.abort(ctx, status, message, err)
		return
	}

	data := ProcessedFromController(&result)
	ctx.JSON(http.StatusOK, &Response{
		Success: true,
		Message: MessageSuccess,
		Data:    &data,
	})
}

func (r *Router) paymentStatus(ctx *gin.Context) {
	rawId := ctx.Param(IdParam)
	id, err := uuid.Parse(rawId)
	if err != nil {
		r.abort(ctx, http.StatusBadRequest, MessageInvalidId, err)
		return
	}

	payment, err := r.Controller.Query(ctx.Request.Context(), id)
	switch {
	case err == nil:
		out := PaymentFromController(&payment)
		ctx.JSON(http.StatusOK, &Response{Success: true, Data: &out})
	case errors.Is(err, payments.ErrPaymentNotFound):
		r.abort(ctx, http.StatusNotFound, MessageNotFound, err)
	default:
		r.abort(ctx, http.StatusInternalServerError, MessageInternal, err)
	}
}

func (r *Router) checkoutConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, &r.Checkout)
}

func (r *Router) processUnreconciled(ctx context.Context) {
	processed, err := r.Controller.ProcessUnreconciled(ctx)
	if err != nil {
		r.logger().Error("failed to process unreconciled charges", "error", err)
	}
	if processed > 0 {
		r.logger().Info("processed unreconciled charges", "processed", processed)
	}
}

// Register routes in the Gin engine and starts the reconciliation sweep until ctx is done
func (r *Router) Register(ctx context.Context) {
	r.Base.POST(ProcessPaymentPath, r.processPayment)
	r.Base.GET(PaymentsPathWithId, r.paymentStatus)
	r.Base.GET(ConfigPath, r.checkoutConfig)

	if r.ProcessInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(r.ProcessInterval)
		defer ticker.Stop()

		for {
			r.processUnreconciled(ctx)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
