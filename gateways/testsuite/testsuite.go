package testsuite

import (
	"errors"
	"testing"
	"time"

	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// DataGenerator defines an interface for test data generation.
type DataGenerator interface {
	// Token that the gateway approves
	ApprovedToken() (token string)
	// Token that the gateway declines
	DeclinedToken() (token string)
	// Location receiving the funds
	LocationId() (id string)
}

// Test runs the behaviour expected from any Gateway implementation
func Test(t *testing.T, g gateways.Gateway, gen DataGenerator) {
	newRequest := func(token string, amount int64) (req gateways.ChargeRequest) {
		return gateways.ChargeRequest{
			SourceToken:    token,
			Amount:         amount,
			Currency:       "USD",
			LocationId:     gen.LocationId(),
			IdempotencyKey: uuid.NewString(),
			ReferenceId:    uuid.NewString(),
		}
	}

	t.Run("Approve", func(t *testing.T) {
		t.Parallel()

		assertions := assert.New(t)

		ctx, cancel := utils.NewContextWithTimeout(time.Minute)
		defer cancel()

		charge, err := g.Charge(ctx, newRequest(gen.ApprovedToken(), 1250))
		assertions.Nil(err, "failed to charge")
		assertions.NotEmpty(charge.Id, "charge without transaction id")
		assertions.Equal(int64(1250), charge.Amount)
		assertions.Equal("USD", charge.Currency)
		assertions.NotEqual(gateways.StatusFailed, charge.Status)
		assertions.NotEmpty(charge.Raw, "raw response not kept")
	})

	t.Run("Decline", func(t *testing.T) {
		t.Parallel()

		assertions := assert.New(t)

		ctx, cancel := utils.NewContextWithTimeout(time.Minute)
		defer cancel()

		_, err := g.Charge(ctx, newRequest(gen.DeclinedToken(), 500))
		decline, ok := gateways.IsDecline(err)
		if assertions.True(ok, "expecting a decline: %v", err) {
			assertions.NotEmpty(decline.Detail, "decline without reason")
		}
		assertions.False(errors.Is(err, gateways.ErrUnavailable), "declines are not outages")
	})

	t.Run("Idempotent replay", func(t *testing.T) {
		t.Parallel()

		assertions := assert.New(t)

		ctx, cancel := utils.NewContextWithTimeout(time.Minute)
		defer cancel()

		req := newRequest(gen.ApprovedToken(), 999)
		first, err := g.Charge(ctx, req)
		assertions.Nil(err, "failed to charge")

		second, err := g.Charge(ctx, req)
		assertions.Nil(err, "failed to replay charge")
		assertions.Equal(first.Id, second.Id, "same key must return the same charge")
		assertions.Equal(first.Amount, second.Amount)
	})
}
