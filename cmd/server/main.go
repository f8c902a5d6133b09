package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dramaspikes/gpsAlarmApp/config"
	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

var (
	configPath string
	seedPath   string

	rootCmd = &cobra.Command{
		Use:   "geoalarm-server",
		Short: "Run the geofence alarm service.",
		Long: `Serves the alarm API over HTTP, tracks positions from MQTT while any alarm
exists, and publishes a fire event to RabbitMQ each time a position enters an
alarm's radius.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return run(ctx)
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&seedPath, "seed", "s", "", "path to seed alarms YAML, overrides seed_file")
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

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if seedPath != "" {
		cfg.SeedFile = seedPath
	}
	seeds, err := config.LoadSeedAlarms(cfg.SeedFile)
	if err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()

	db, err := config.NewPostgres(startCtx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = amqpConn.Close() }()

	// The module is built after the client connects; until then there is no
	// subscription to restore.
	var built atomic.Pointer[core.Module]
	mqttClient, err := config.NewMQTT(cfg, func(client mqtt.Client) {
		if m := built.Load(); m != nil {
			m.OnMQTTConnect(client)
		}
	})
	if err != nil {
		return err
	}
	defer mqttClient.Disconnect(250)

	deps := core.Deps{
		DB:         db,
		AMQPConn:   amqpConn,
		MQTTClient: mqttClient,
		MQTTTopic:  cfg.MQTT.Topic,
	}
	if cfg.Telegram.Enabled {
		deps.Telegram = &core.TelegramOptions{
			BotToken:   cfg.Telegram.BotToken,
			ChatID:     cfg.Telegram.ChatID,
			MaxRetries: cfg.Telegram.MaxRetries,
		}
	}

	coreModule, err := core.Build(deps)
	if err != nil {
		return err
	}
	built.Store(coreModule)

	if err := coreModule.Start(startCtx, seeds); err != nil {
		if !errors.Is(err, domain.ErrSampleSource) {
			return err
		}
		logger.WarnKV(ctx, "tracking not started, retry with POST /tracking/start", "error", err)
	}
	defer coreModule.Stop(context.Background())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	config.NewHealthChecker(func() (string, int) {
		return coreModule.AlarmSvc.TrackingState().String(), coreModule.AlarmSvc.CountAlarms()
	}).
		AddCheck("postgres", config.PostgresCheck(db)).
		AddCheck("rabbitmq", config.RabbitMQCheck(amqpConn)).
		AddCheck("mqtt", config.MQTTCheck(mqttClient)).
		Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "listening on :%s", cfg.HTTPPort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	return srv.Shutdown(shutdownCtx)
}
