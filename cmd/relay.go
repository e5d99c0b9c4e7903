package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/resto-order/internal/broker"
	"github.com/frahmantamala/resto-order/internal/core/events"
	"github.com/frahmantamala/resto-order/pkg/logger"
)

var relayCmd = &cobra.Command{
	Use:   "events",
	Short: "Event broker commands",
	Long:  `Inspect the domain events the server relays to RabbitMQ.`,
}

var tailEventsCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the order exchange",
	Long:  `Bind a temporary queue to the order exchange and print every event as one JSON line.`,
	Run: func(cmd *cobra.Command, args []string) {
		tailEvents()
	},
}

var bindingKey string

func tailEvents() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(cfg)
	lg := logger.LoggerWrapper()

	if cfg.RabbitMQ.URL == "" {
		lg.Error("rabbitmq url is not configured")
		os.Exit(1)
	}

	ch, closeFn, err := broker.DialConsumer(cfg.RabbitMQ.URL)
	if err != nil {
		lg.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("tailing events", "exchange", cfg.RabbitMQ.Exchange, "binding_key", bindingKey)

	enc := json.NewEncoder(os.Stdout)
	err = broker.Consume(ctx, ch, cfg.RabbitMQ.Exchange, bindingKey, func(m broker.Message) {
		if err := enc.Encode(m); err != nil {
			lg.Warn("failed to print event", "event_id", m.ID, "error", err)
		}
	})
	if err != nil {
		lg.Error("event stream stopped", "error", err)
		os.Exit(1)
	}
	lg.Info("event tail stopped")
}

func init() {
	tailEventsCmd.Flags().StringVar(&bindingKey, "key", "#", "topic binding key: # for all, order.#, or one of "+strings.Join(events.EventTypes, ", "))
	relayCmd.AddCommand(tailEventsCmd)
}
