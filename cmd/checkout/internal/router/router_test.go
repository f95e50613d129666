package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RogueTeam/cardpay/cmd/checkout/internal/router"
	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/payments"
	"github.com/RogueTeam/cardpay/storage"
	storagemock "github.com/RogueTeam/cardpay/storage/mock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type gatewayFunc func(ctx context.Context, req gateways.ChargeRequest) (gateways.Charge, error)

func (f gatewayFunc) Charge(ctx context.Context, req gateways.ChargeRequest) (charge gateways.Charge, err error) {
	return f(ctx, req)
}

// Scripted gateway keyed by source token
func scripted(req gateways.ChargeRequest) (charge gateways.Charge, err error) {
	switch req.SourceToken {
	case "tok_1":
		return gateways.Charge{
			Id:       "sq_abc",
			Status:   gateways.StatusCompleted,
			Amount:   req.Amount,
			Currency: req.Currency,
			Raw:      json.RawMessage(`{"payment":{"id":"sq_abc","status":"COMPLETED"}}`),
		}, nil
	case "tok_2":
		return charge, &gateways.DeclineError{Category: "PAYMENT_METHOD_ERROR", Code: "GENERIC_DECLINE", Detail: "Card declined"}
	default:
		return charge, fmt.Errorf("%w: dial tcp 10.0.0.1:443: i/o timeout", gateways.ErrUnavailable)
	}
}

type env struct {
	engine *gin.Engine
	store  *storagemock.Mock
}

func newEnv(t *testing.T, debug bool) (e env) {
	e.store = storagemock.New()
	e.engine = gin.New()

	ctx, cancel := context.WithCancel(context.TODO())
	t.Cleanup(cancel)

	r := router.Router{
		Controller: payments.New(payments.Config{
			Storage: e.store,
			Gateway: gatewayFunc(func(ctx context.Context, req gateways.ChargeRequest) (gateways.Charge, error) {
				return scripted(req)
			}),
			LocationId: "L1",
		}),
		Checkout: router.Checkout{ApplicationId: "sandbox-sq0idb-app", LocationId: "L1", Environment: "sandbox"},
		Debug:    debug,
		Base:     e.engine,
	}
	r.Register(ctx)
	return e
}

func (e *env) do(method, path, body string) (status int, res map[string]any) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	res = map[string]any{}
	json.Unmarshal(w.Body.Bytes(), &res)
	return w.Code, res
}

func Test_ProcessPayment(t *testing.T) {
	t.Run("Succeed", func(t *testing.T) {
		assertions := assert.New(t)
		e := newEnv(t, false)

		status, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_1","amount":12.50}`)
		assertions.Equal(http.StatusOK, status)
		assertions.Equal(true, res["success"])
		assertions.Equal(router.MessageSuccess, res["message"])

		data, ok := res["data"].(map[string]any)
		require.True(t, ok, "missing data: %v", res)
		assertions.Equal("sq_abc", data["payment_id"])
		assertions.Equal(12.5, data["amount"])

		orderId, err := uuid.Parse(fmt.Sprint(data["order_id"]))
		assertions.Nil(err)
		order, err := e.store.Order(context.TODO(), orderId)
		assertions.Nil(err)
		assertions.Equal(storage.OrderStatusCompleted, order.Status)
		assertions.Len(e.store.Records(), 1)
	})

	t.Run("Amount as string", func(t *testing.T) {
		assertions := assert.New(t)
		e := newEnv(t, false)

		status, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_1","amount":"7.25"}`)
		assertions.Equal(http.StatusOK, status)
		assertions.Equal(true, res["success"])
	})

	t.Run("Fail", func(t *testing.T) {
		type Test struct {
			Name   string
			Body   string
			Status int
			Error  string
			Orders int
		}

		tests := []Test{
			{Name: "Declined", Body: `{"sourceId":"tok_2","amount":5.00}`, Status: http.StatusPaymentRequired, Error: "Card declined", Orders: 1},
			{Name: "Unavailable", Body: `{"sourceId":"tok_3","amount":5.00}`, Status: http.StatusBadGateway, Error: payments.MessageUnavailable, Orders: 1},
			{Name: "Zero amount", Body: `{"sourceId":"tok_1","amount":0}`, Status: http.StatusUnprocessableEntity},
			{Name: "Negative amount", Body: `{"sourceId":"tok_1","amount":-5}`, Status: http.StatusUnprocessableEntity},
			{Name: "Too large", Body: `{"sourceId":"tok_1","amount":1000000}`, Status: http.StatusUnprocessableEntity},
			{Name: "Too many decimals", Body: `{"sourceId":"tok_1","amount":1.001}`, Status: http.StatusUnprocessableEntity},
			{Name: "Tiny exponent", Body: `{"sourceId":"tok_1","amount":1e-100000000}`, Status: http.StatusUnprocessableEntity, Error: router.MessageInvalidRequest},
			{Name: "Huge exponent", Body: `{"sourceId":"tok_1","amount":"1e100000000"}`, Status: http.StatusUnprocessableEntity, Error: router.MessageInvalidRequest},
			{Name: "Missing amount", Body: `{"sourceId":"tok_1"}`, Status: http.StatusUnprocessableEntity},
			{Name: "Missing source", Body: `{"amount":1.00}`, Status: http.StatusUnprocessableEntity, Error: "sourceId is required"},
			{Name: "Not JSON", Body: `sourceId=tok_1`, Status: http.StatusUnprocessableEntity, Error: router.MessageInvalidRequest},
			{Name: "Bad amount", Body: `{"sourceId":"tok_1","amount":"twelve"}`, Status: http.StatusUnprocessableEntity, Error: router.MessageInvalidRequest},
		}

		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				assertions := assert.New(t)
				e := newEnv(t, false)

				status, res := e.do(http.MethodPost, router.ProcessPaymentPath, test.Body)
				assertions.Equal(test.Status, status)
				assertions.Equal(false, res["success"])
				assertions.NotEmpty(res["error"])
				if test.Error != "" {
					assertions.Equal(test.Error, res["error"])
				}
				assertions.NotContains(res, "debug")
				assertions.NotContains(fmt.Sprint(res["error"]), "10.0.0.1", "internal details leaked")

				orders := e.store.Orders()
				assertions.Len(orders, test.Orders)
				for _, order := range orders {
					assertions.Equal(storage.OrderStatusFailed, order.Status)
				}
				assertions.Len(e.store.Records(), 0)
			})
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		assertions := assert.New(t)
		e := newEnv(t, false)
		e.store.Inject(storagemock.Faults{CreateOrder: errors.New("database is locked")})

		status, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_1","amount":1.00}`)
		assertions.Equal(http.StatusInternalServerError, status)
		assertions.Equal(payments.MessagePersistence, res["error"])
	})

	t.Run("Reconciliation", func(t *testing.T) {
		assertions := assert.New(t)
		e := newEnv(t, false)
		e.store.Inject(storagemock.Faults{CompleteOrder: errors.New("database is locked")})

		status, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_1","amount":1.00}`)
		assertions.Equal(http.StatusInternalServerError, status)

		orders := e.store.Orders()
		require.Len(t, orders, 1)
		message := fmt.Sprint(res["error"])
		assertions.Contains(message, orders[0].Id.String())
		assertions.NotContains(message, "failed")
		assertions.NotContains(message, "declined")
	})

	t.Run("Debug", func(t *testing.T) {
		assertions := assert.New(t)
		e := newEnv(t, true)

		status, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_3","amount":5.00}`)
		assertions.Equal(http.StatusBadGateway, status)
		assertions.Contains(fmt.Sprint(res["debug"]), "i/o timeout")
	})
}

func Test_PaymentStatus(t *testing.T) {
	assertions := assert.New(t)
	e := newEnv(t, false)

	_, res := e.do(http.MethodPost, router.ProcessPaymentPath, `{"sourceId":"tok_1","amount":12.50}`)
	data := res["data"].(map[string]any)

	status, res := e.do(http.MethodGet, fmt.Sprintf("%s/%s", router.PaymentsPath, data["order_id"]), "")
	assertions.Equal(http.StatusOK, status)
	payment, ok := res["data"].(map[string]any)
	require.True(t, ok, "missing data: %v", res)
	assertions.Equal(string(storage.OrderStatusCompleted), payment["status"])
	assertions.Equal(12.5, payment["amount"])
	record, ok := payment["payment"].(map[string]any)
	require.True(t, ok, "missing payment record: %v", payment)
	assertions.Equal("sq_abc", record["payment_id"])
	assertions.NotContains(record, "metadata")

	status, _ = e.do(http.MethodGet, fmt.Sprintf("%s/%s", router.PaymentsPath, uuid.New()), "")
	assertions.Equal(http.StatusNotFound, status)

	status, _ = e.do(http.MethodGet, router.PaymentsPath+"/not-an-id", "")
	assertions.Equal(http.StatusBadRequest, status)
}

func Test_CheckoutConfig(t *testing.T) {
	assertions := assert.New(t)
	e := newEnv(t, false)

	status, res := e.do(http.MethodGet, router.ConfigPath, "")
	assertions.Equal(http.StatusOK, status)
	assertions.Equal("sandbox-sq0idb-app", res["application_id"])
	assertions.Equal("L1", res["location_id"])
	assertions.Equal("sandbox", res["environment"])
	assertions.NotContains(res, "access_token")
}

func Test_Sweep(t *testing.T) {
	assertions := assert.New(t)

	store := storagemock.New()
	store.Inject(storagemock.Faults{CompleteOrder: errors.New("database is locked")})
	ctrl := payments.New(payments.Config{
		Storage: store,
		Gateway: gatewayFunc(func(ctx context.Context, req gateways.ChargeRequest) (gateways.Charge, error) {
			return scripted(req)
		}),
	})

	_, err := ctrl.Process(context.TODO(), payments.Request{SourceId: "tok_1", Amount: amountOf(t, "12.50")})
	assertions.ErrorIs(err, payments.ErrReconciliation)
	store.Inject(storagemock.Faults{})

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()

	r := router.Router{
		ProcessInterval: 10 * time.Millisecond,
		Controller:      ctrl,
		Base:            gin.New(),
	}
	r.Register(ctx)

	assertions.Eventually(func() bool {
		records := store.Records()
		return len(records) == 1 && records[0].GatewayTransactionId == "sq_abc"
	}, time.Second, 10*time.Millisecond)
}

func amountOf(t *testing.T, s string) (d decimal.Decimal) {
	require.Nil(t, d.FromString(s))
	return d
}
