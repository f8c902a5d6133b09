package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/dramaspikes/gpsAlarmApp/config"
	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

const (
	exchangeName = "geoalarm.events"
	queueName    = "alarm_fired"
)

type fireMessage struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	AlarmID   int64  `json:"alarm_id"`
	AlarmName string `json:"alarm_name"`
	Location  struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Timestamp int64 `json:"timestamp"`
}

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "geoalarm-event-listener",
		Short: "Log alarm fire events published to RabbitMQ.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx)
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logger.Infof(ctx, "consuming from queue '%s', waiting for alarm fire events...", queueName)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handle(ctx, msg)
		}
	}
}

func handle(ctx context.Context, msg amqp.Delivery) {
	var fire fireMessage
	if err := json.Unmarshal(msg.Body, &fire); err != nil || fire.Event != string(domain.AlarmFired) {
		logger.WarnKV(ctx, "unexpected message", "body", string(msg.Body))
		_ = msg.Nack(false, false)
		return
	}

	logger.InfoKV(ctx, "alarm fired",
		"event_id", fire.EventID,
		"alarm_id", fire.AlarmID,
		"alarm_name", fire.AlarmName,
		"latitude", fire.Location.Latitude,
		"longitude", fire.Location.Longitude,
		"timestamp", fire.Timestamp,
	)
	_ = msg.Ack(false)
}
