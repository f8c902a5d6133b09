package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dramaspikes/gpsAlarmApp/internal/logger"
	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/service"
)

var _ service.SampleSource = (*PositionSubscriber)(nil)

const (
	DefaultTopic = "geoalarm/device/+/position"

	subscribeTimeout = 10 * time.Second
)

var errNotConnected = errors.New("mqtt broker not connected")

type positionMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// PositionSubscriber is the MQTT backed sample source. Samples flow to the
// handler passed to Start until Stop is called.
type PositionSubscriber struct {
	client mqtt.Client
	topic  string

	mu     sync.Mutex
	handle service.SampleHandler
}

func NewPositionSubscriber(client mqtt.Client, topic string) *PositionSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PositionSubscriber{client: client, topic: topic}
}

func (s *PositionSubscriber) Start(_ context.Context, handle service.SampleHandler) error {
	if !s.client.IsConnectionOpen() {
		return &domain.SampleSourceError{Err: errNotConnected}
	}

	s.setHandler(handle)

	if err := s.subscribe(); err != nil {
		s.setHandler(nil)
		return &domain.SampleSourceError{Err: err}
	}
	return nil
}

// Resubscribe restores the subscription after the client reconnected with a
// clean session. It is a no-op unless the subscriber is started. The
// signature matches mqtt.OnConnectHandler.
func (s *PositionSubscriber) Resubscribe(_ mqtt.Client) {
	if s.handler() == nil {
		return
	}

	ctx := context.Background()
	if err := s.subscribe(); err != nil {
		logger.ErrorKV(ctx, "resubscribe after reconnect", "error", err)
		return
	}
	logger.InfoKV(ctx, "resubscribed after reconnect", "topic", s.topic)
}

func (s *PositionSubscriber) subscribe() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("subscribe %s: timed out", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	return nil
}

func (s *PositionSubscriber) Stop() error {
	s.setHandler(nil)

	token := s.client.Unsubscribe(s.topic)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("unsubscribe %s: timed out", s.topic)
	}
	return token.Error()
}

func (s *PositionSubscriber) setHandler(handle service.SampleHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle = handle
}

func (s *PositionSubscriber) handler() service.SampleHandler {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.handle
}

func (s *PositionSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx := context.Background()

	var raw positionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		logger.WarnKV(ctx, "invalid position message", "topic", msg.Topic(), "error", err)
		return
	}

	if err := validatePositionMessage(&raw); err != nil {
		logger.WarnKV(ctx, "position validation error", "topic", msg.Topic(), "error", err)
		return
	}

	handle := s.handler()
	if handle == nil {
		return
	}

	sample := domain.PositionSample{
		DeviceID: raw.DeviceID,
		Coordinate: domain.Coordinate{
			Lat: raw.Latitude,
			Lon: raw.Longitude,
		},
		Timestamp: time.Unix(raw.Timestamp, 0),
	}

	handle(logger.WithKV(ctx, "device_id", raw.DeviceID), sample)
}

func validatePositionMessage(msg *positionMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("device_id: required")
	}
	if err := (domain.Coordinate{Lat: msg.Latitude, Lon: msg.Longitude}).Validate(); err != nil {
		return err
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
