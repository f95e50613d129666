package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/gateways/mock"
	"github.com/RogueTeam/cardpay/gateways/testsuite"
	"github.com/stretchr/testify/assert"
)

func Test_Mock(t *testing.T) {
	testsuite.Test(t, mock.New(mock.Config{}), &testsuite.MockGenerator{})
}

func Test_Unavailable(t *testing.T) {
	assertions := assert.New(t)

	m := mock.New(mock.Config{})
	req := gateways.ChargeRequest{
		SourceToken:    mock.NonceUnavailable,
		Amount:         100,
		Currency:       "USD",
		IdempotencyKey: "key",
	}
	for range 2 {
		_, err := m.Charge(context.TODO(), req)
		assertions.ErrorIs(err, gateways.ErrUnavailable)
		_, ok := gateways.IsDecline(err)
		assertions.False(ok)
	}
	assertions.Equal(uint64(2), m.Calls())
	assertions.Equal(0, m.Charges())
}

func Test_Delay(t *testing.T) {
	assertions := assert.New(t)

	m := mock.New(mock.Config{Delay: time.Minute})
	ctx, cancel := context.WithTimeout(context.TODO(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Charge(ctx, gateways.ChargeRequest{SourceToken: mock.NonceApproved, Amount: 1, Currency: "USD", IdempotencyKey: "k"})
	assertions.ErrorIs(err, gateways.ErrUnavailable)
	assertions.True(errors.Is(err, context.DeadlineExceeded))
}
