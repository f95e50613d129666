package squareapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RogueTeam/cardpay/internal/squareapi"
	"github.com/stretchr/testify/assert"
)

func Test_CreatePayment(t *testing.T) {
	type Test struct {
		Name       string
		StatusCode int
		Body       string
		Succeed    bool
		Categories []string
	}

	tests := []Test{
		{
			Name:       "Completed",
			StatusCode: http.StatusOK,
			Body:       `{"payment":{"id":"sq_abc","status":"COMPLETED","amount_money":{"amount":1250,"currency":"USD"}}}`,
			Succeed:    true,
		},
		{
			Name:       "Declined",
			StatusCode: http.StatusPaymentRequired,
			Body:       `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"GENERIC_DECLINE","detail":"Card declined"}],"payment":{"id":"sq_def","status":"FAILED"}}`,
			Categories: []string{squareapi.CategoryPaymentMethodError},
		},
		{
			Name:       "Unauthorized",
			StatusCode: http.StatusUnauthorized,
			Body:       `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			Categories: []string{squareapi.CategoryAuthenticationError},
		},
		{
			Name:       "Not JSON",
			StatusCode: http.StatusBadGateway,
			Body:       `<html>bad gateway</html>`,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assertions := assert.New(t)

			var received squareapi.CreatePaymentRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assertions.Equal(http.MethodPost, r.Method)
				assertions.Equal("/v2/payments", r.URL.Path)
				assertions.Equal("Bearer secret", r.Header.Get("Authorization"))
				assertions.Equal(squareapi.DefaultVersion, r.Header.Get("Square-Version"))
				assertions.Equal("yes", r.Header.Get("X-Custom"))
				assertions.Nil(json.NewDecoder(r.Body).Decode(&received))

				w.WriteHeader(test.StatusCode)
				w.Write([]byte(test.Body))
			}))
			defer server.Close()

			client := squareapi.New(squareapi.Config{
				Url:           server.URL,
				AccessToken:   "secret",
				CustomHeaders: map[string]string{"X-Custom": "yes"},
			})
			res, err := client.CreatePayment(context.TODO(), &squareapi.CreatePaymentRequest{
				SourceId:       "cnon:card-nonce-ok",
				IdempotencyKey: "key",
				AmountMoney:    squareapi.Money{Amount: 1250, Currency: "USD"},
				LocationId:     "L1",
				Autocomplete:   true,
			})
			assertions.Equal("cnon:card-nonce-ok", received.SourceId)
			assertions.Equal(int64(1250), received.AmountMoney.Amount)
			assertions.True(received.Autocomplete)

			if test.Succeed {
				if assertions.Nil(err) {
					assertions.Equal("sq_abc", res.Payment.Id)
					assertions.Equal(squareapi.PaymentCompleted, res.Payment.Status)
					assertions.JSONEq(test.Body, string(res.Raw))
				}
				return
			}

			var apiErr *squareapi.APIError
			if assertions.True(errors.As(err, &apiErr), "expecting api error: %v", err) {
				assertions.Equal(test.StatusCode, apiErr.StatusCode)
				for _, category := range test.Categories {
					assertions.True(apiErr.HasCategory(category))
				}
				assertions.Equal(test.Body, string(apiErr.Raw))
			}
		})
	}

	t.Run("Connection refused", func(t *testing.T) {
		assertions := assert.New(t)

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := squareapi.New(squareapi.Config{Url: url})
		_, err := client.CreatePayment(context.TODO(), &squareapi.CreatePaymentRequest{})
		assertions.NotNil(err)

		var apiErr *squareapi.APIError
		assertions.False(errors.As(err, &apiErr))
	})
}

func Test_Environment(t *testing.T) {
	assertions := assert.New(t)

	assertions.Equal(squareapi.SandboxUrl, squareapi.EnvironmentSandbox.Url())
	assertions.Equal(squareapi.ProductionUrl, squareapi.EnvironmentProduction.Url())
	assertions.Equal("", squareapi.Environment("staging").Url())
}
