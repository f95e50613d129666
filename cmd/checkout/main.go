package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RogueTeam/cardpay/cmd/checkout/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const ShutdownTimeout = 10 * time.Second

func loadConfig(path string) (cfg Config, err error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	err = yaml.Unmarshal(contents, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

var app = cli.Command{
	Name:  "checkout",
	Usage: "Card checkout service backed by Square",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Set debug mode. Error responses include internal details",
			Sources: cli.EnvVars("CHECKOUT_DEBUG"),
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML configuration",
			Value:   "config.yaml",
			Sources: cli.EnvVars("CHECKOUT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "square-access-token",
			Usage:   "Square access token. Overrides square.access-token",
			Sources: cli.EnvVars("SQUARE_ACCESS_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "Listen address. Overrides listen-address",
			Sources: cli.EnvVars("CHECKOUT_LISTEN"),
		},
	},
	Action: func(ctx context.Context, c *cli.Command) (err error) {
		debug := c.Bool("debug")

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		cfg, err := loadConfig(c.String("config"))
		if err != nil {
			return err
		}
		if token := c.String("square-access-token"); token != "" {
			cfg.Square.AccessToken = token
		}
		if listen := c.String("listen"); listen != "" {
			cfg.ListenAddress = listen
		}

		ctrl, config, err := cfg.Compile(ctx, logger)
		if err != nil {
			return err
		}
		defer config.Storage.Close()

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		e := gin.Default()
		var r = router.Router{
			ProcessInterval: cfg.ProcessInterval,
			Controller:      ctrl,
			Checkout: router.Checkout{
				ApplicationId: cfg.Square.ApplicationId,
				LocationId:    cfg.Square.LocationId,
				Environment:   string(cfg.Square.Environment),
			},
			Debug:  debug,
			Logger: logger,
			Base:   e,
		}
		r.Register(ctx)

		server := &http.Server{Addr: cfg.ListenAddress, Handler: e}
		go func() {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		logger.Info("listening", "address", cfg.ListenAddress, "environment", cfg.Square.Environment, "storage", cfg.Storage.Driver)
		err = server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	},
}

func main() {
	err := app.Run(context.TODO(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
