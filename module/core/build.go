package core

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	handler "github.com/dramaspikes/gpsAlarmApp/module/core/internal/handler/http"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/handler/subscriber"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/database/postgres"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/notifier/telegram"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/publisher/rabbitmq"
	"github.com/dramaspikes/gpsAlarmApp/module/core/service"
	"github.com/dramaspikes/gpsAlarmApp/module/core/store"
)

// Deps are the infrastructure clients and settings the module is built from.
type Deps struct {
	DB         *sql.DB
	AMQPConn   *amqp.Connection
	MQTTClient mqtt.Client
	MQTTTopic  string
	Telegram   *TelegramOptions
}

type TelegramOptions struct {
	BotToken   string
	ChatID     string
	MaxRetries int
}

type Module struct {
	AlarmSvc *service.AlarmService
	Tracker  *service.TrackingController
	handler  *handler.AlarmHandler
	repo     *postgres.AlarmRepo
	firePub  io.Closer
	source   *subscriber.PositionSubscriber
}

func Build(deps Deps) (*Module, error) {
	alarmRepo := postgres.NewAlarmRepo(deps.DB)

	firePub, err := rabbitmq.NewFirePublisher(deps.AMQPConn)
	if err != nil {
		return nil, fmt.Errorf("fire publisher: %w", err)
	}

	sink := service.FanoutSink{firePub}
	if deps.Telegram != nil {
		notifier, err := telegram.NewNotifier(deps.Telegram.BotToken, deps.Telegram.ChatID, deps.Telegram.MaxRetries, 0)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sink = append(sink, notifier)
	}

	alarms := store.New()
	source := subscriber.NewPositionSubscriber(deps.MQTTClient, deps.MQTTTopic)
	tracker := service.NewTrackingController(alarms, source, sink)
	alarmSvc := service.NewAlarmService(alarms, alarmRepo, tracker)

	return &Module{
		AlarmSvc: alarmSvc,
		Tracker:  tracker,
		handler:  handler.NewAlarmHandler(alarmSvc),
		repo:     alarmRepo,
		firePub:  firePub,
		source:   source,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

// Start prepares the schema, restores alarms and starts tracking when any
// alarm exists. A sample source failure is returned but leaves the module
// usable; tracking can be retried through the API.
func (m *Module) Start(ctx context.Context, seeds []domain.AlarmInput) error {
	if err := m.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("alarm schema: %w", err)
	}
	return m.AlarmSvc.Bootstrap(ctx, seeds)
}

// OnMQTTConnect restores the position subscription after the MQTT client
// reconnected. Use it as the client's mqtt.OnConnectHandler.
func (m *Module) OnMQTTConnect(client mqtt.Client) {
	m.source.Resubscribe(client)
}

func (m *Module) Stop(ctx context.Context) {
	m.Tracker.Close(ctx)
	if err := m.firePub.Close(); err != nil {
		logger.WarnKV(ctx, "close fire publisher", "error", err)
	}
}
