package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/RogueTeam/cardpay/decimal"
	"github.com/RogueTeam/cardpay/gateways/square"
	"github.com/RogueTeam/cardpay/internal/squareapi"
	"github.com/RogueTeam/cardpay/payments"
	"github.com/RogueTeam/cardpay/storage"
	"github.com/RogueTeam/cardpay/storage/badgerstore"
	"github.com/RogueTeam/cardpay/storage/boltstore"
	"github.com/RogueTeam/cardpay/storage/pgstore"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

const (
	DriverBadger   = "badger"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Yaml configuration reference
type (
	Storage struct {
		Driver string `yaml:"driver"`
		// Badger directory or bolt file
		Path string `yaml:"path,omitempty"`
		// Postgres connection string
		Url string `yaml:"url,omitempty"`
	}
	Square struct {
		Environment   squareapi.Environment `yaml:"environment"`
		ApplicationId string                `yaml:"application-id"`
		LocationId    string                `yaml:"location-id"`
		AccessToken   string                `yaml:"access-token,omitempty"`
		Version       string                `yaml:"version,omitempty"`
		Timeout       time.Duration         `yaml:"timeout,omitempty"`
		// Requests per second. Zero disables the limiter
		RateLimit float64 `yaml:"rate-limit,omitempty"`
		Burst     int     `yaml:"burst,omitempty"`
		// Optional SOCKS5 proxy (host:port) for outgoing calls
		Socks5 string `yaml:"socks5,omitempty"`
	}
	Config struct {
		ListenAddress   string            `yaml:"listen-address"`
		ProcessInterval time.Duration     `yaml:"process-interval"`
		Currency        payments.Currency `yaml:"currency"`
		MaxAmount       decimal.Decimal   `yaml:"max-amount"`
		Storage         Storage           `yaml:"storage"`
		Square          Square            `yaml:"square"`
	}
)

func (c *Config) defaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
	if c.Currency == "" {
		c.Currency = payments.CurrencyUSD
	}
	if !c.MaxAmount.Value.IsPositive() {
		c.MaxAmount = decimal.MaxAmount
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverBadger
	}
	if c.Storage.Path == "" && c.Storage.Driver == DriverBadger {
		c.Storage.Path = "data"
	}
	if c.Square.Version == "" {
		c.Square.Version = squareapi.DefaultVersion
	}
	if c.Square.Timeout == 0 {
		c.Square.Timeout = 30 * time.Second
	}
	if c.Square.Burst <= 0 {
		c.Square.Burst = 1
	}
}

// Validate fills the defaults and checks the configuration is usable
func (c *Config) Validate() (err error) {
	c.defaults()

	err = c.Currency.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxAmount.Value.GreaterThan(decimal.MaxAmount.Value) {
		return fmt.Errorf("%w: max-amount above %s", ErrInvalidConfig, decimal.MaxAmount)
	}

	switch c.Storage.Driver {
	case DriverBadger:
	case DriverBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: bolt storage requires a path", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Storage.Url == "" {
			return fmt.Errorf("%w: postgres storage requires an url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	switch {
	case c.Square.Environment.Url() == "":
		return fmt.Errorf("%w: unknown square environment %q", ErrInvalidConfig, c.Square.Environment)
	case c.Square.LocationId == "":
		return fmt.Errorf("%w: square location-id is required", ErrInvalidConfig)
	case c.Square.AccessToken == "":
		return fmt.Errorf("%w: square access-token is required", ErrInvalidConfig)
	case c.Square.RateLimit < 0:
		return fmt.Errorf("%w: square rate-limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (s *Storage) Open(ctx context.Context) (store storage.Storage, err error) {
	switch s.Driver {
	case DriverBadger:
		return badgerstore.Open(s.Path)
	case DriverBolt:
		return boltstore.Open(s.Path)
	case DriverPostgres:
		return pgstore.Open(ctx, s.Url)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, s.Driver)
	}
}

func (s *Square) HTTPClient() (client *http.Client, err error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.Socks5 != "" {
		dialer, err := proxy.SOCKS5("tcp", s.Socks5, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare SOCKS5 dialer: %w", err)
		}

		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &http.Client{Timeout: s.Timeout, Transport: transport}, nil
}

func (s *Square) Limiter() (limiter *rate.Limiter) {
	if s.RateLimit == 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.RateLimit), s.Burst)
}

// Compile opens the storage and builds the payments controller. Callers close the storage
func (c *Config) Compile(ctx context.Context, logger *slog.Logger) (ctrl *payments.Controller, config payments.Config, err error) {
	err = c.Validate()
	if err != nil {
		return nil, config, err
	}

	httpClient, err := c.Square.HTTPClient()
	if err != nil {
		return nil, config, err
	}

	config = payments.Config{
		Currency:   c.Currency,
		LocationId: c.Square.LocationId,
		MaxAmount:  c.MaxAmount,
		Logger:     logger,
		Gateway: square.New(square.Config{
			Client: squareapi.New(squareapi.Config{
				Url:         c.Square.Environment.Url(),
				AccessToken: c.Square.AccessToken,
				Version:     c.Square.Version,
				Client:      httpClient,
			}),
			LocationId: c.Square.LocationId,
			Limiter:    c.Square.Limiter(),
		}),
	}

	config.Storage, err = c.Storage.Open(ctx)
	if err != nil {
		return nil, config, fmt.Errorf("failed to open %s storage: %w", c.Storage.Driver, err)
	}

	ctrl = payments.New(config)
	return ctrl, config, nil
}
