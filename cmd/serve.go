package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/timada-org/todoboard/internal/api"
	"github.com/timada-org/todoboard/internal/core"
	"github.com/timada-org/todoboard/internal/events"
	"github.com/timada-org/todoboard/internal/kv"
	"github.com/timada-org/todoboard/pkg/logutils"
)

// maxBrokerNames bounds how many "<id>-<n>" subscription names are tried
// when other nodes already hold the exclusive ones.
const maxBrokerNames = 15

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the todoboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.NewConfig(cfgFile)
		if err != nil {
			return err
		}

		logger, closeLog, err := logutils.New(config.Log.Level, config.Log.File)
		if err != nil {
			return err
		}
		defer closeLog()

		store, err := kv.Open(config.Store.Driver, config.Store.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var broker events.Broker
		if config.Broker.URL != "" {
			p, err := newBroker(config, logger)
			if err != nil {
				return err
			}
			broker = p
		}

		// Close also closes the broker
		bus := events.NewBus(events.BusOptions{Broker: broker, Logger: logger})
		bus.Start(ctx)
		defer bus.Close()

		var auth *api.Auth
		if config.JwksURL != "" {
			auth, err = api.NewAuth(config.JwksURL, logger)
			if err != nil {
				return fmt.Errorf("jwks %s: %w", config.JwksURL, err)
			}
			defer auth.Close()
		}

		app, err := api.New(api.Options{
			Store:  store,
			Bus:    bus,
			Auth:   auth,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		logger.Info().
			Str("id", config.ID).
			Str("store", config.Store.Driver).
			Bool("broker", broker != nil).
			Bool("auth", auth != nil).
			Msg("starting todoboard")

		return app.Serve(ctx, config.Addr)
	},
}

func newBroker(config *core.Config, logger zerolog.Logger) (*events.Pulsar, error) {
	for i := 0; i < maxBrokerNames; i++ {
		name := fmt.Sprintf("%s-%d", config.ID, i)

		p, err := events.NewPulsar(events.PulsarOptions{
			URL:    config.Broker.URL,
			Topic:  config.Broker.Topic,
			Name:   name,
			Logger: logger,
		})
		if err == nil {
			logger.Info().Str("name", name).Msg("connected to broker")
			return p, nil
		}

		if !strings.Contains(err.Error(), "is already connected to topic") {
			return nil, err
		}
	}

	return nil, errors.New("all broker subscription names are taken")
}
