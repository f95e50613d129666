package payments

import (
	"log/slog"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/gateways"
	"github.com/RogueTeam/cardpay/storage"
)

const MaxConcurrentJobs = 64

type Controller struct {
	storage    storage.Storage
	gateway    gateways.Gateway
	currency   Currency
	locationId string
	maxAmount  decimal.Decimal
	jobs       int
	logger     *slog.Logger
}

type Config struct {
	// Durable home of orders and payment records
	Storage storage.Storage
	// Gateway charging the cards
	Gateway gateways.Gateway
	// Currency of every charge. Defaults to USD
	Currency Currency
	// Merchant location receiving the funds
	LocationId string
	// Largest accepted amount. Defaults to and never exceeds decimal.MaxAmount
	MaxAmount decimal.Decimal
	// Concurrent jobs of the reconciliation sweep. Defaults to MaxConcurrentJobs
	Jobs int
	// Defaults to slog.Default()
	Logger *slog.Logger
}

func New(config Config) (ctrl *Controller) {
	ctrl = &Controller{
		storage:    config.Storage,
		gateway:    config.Gateway,
		currency:   config.Currency,
		locationId: config.LocationId,
		maxAmount:  config.MaxAmount,
		jobs:       config.Jobs,
		logger:     config.Logger,
	}

	if ctrl.currency == "" {
		ctrl.currency = CurrencyUSD
	}
	if !ctrl.maxAmount.Value.IsPositive() || ctrl.maxAmount.Value.GreaterThan(decimal.MaxAmount.Value) {
		ctrl.maxAmount = decimal.MaxAmount
	}
	if ctrl.jobs <= 0 {
		ctrl.jobs = MaxConcurrentJobs
	}
	if ctrl.logger == nil {
		ctrl.logger = slog.Default()
	}
	return ctrl
}

func (c *Controller) Currency() (currency Currency) {
	return c.currency
}
