package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/publisher"
)

var _ publisher.FirePublisher = (*FirePublisher)(nil)

const (
	ExchangeName = "geoalarm.events"
	QueueName    = "alarm_fired"
)

type FirePublisher struct {
	ch *amqp.Channel
}

func NewFirePublisher(conn *amqp.Connection) (*FirePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &FirePublisher{ch: ch}, nil
}

type fireMessage struct {
	EventID   string               `json:"event_id"`
	Event     domain.FireEventType `json:"event"`
	AlarmID   int64                `json:"alarm_id"`
	AlarmName string               `json:"alarm_name"`
	Location  fireLocation         `json:"location"`
	Timestamp int64                `json:"timestamp"`
}

type fireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func encodeFire(event *domain.FireEvent) ([]byte, error) {
	msg := fireMessage{
		EventID:   event.ID,
		Event:     domain.AlarmFired,
		AlarmID:   event.AlarmID,
		AlarmName: event.AlarmName,
		Location: fireLocation{
			Latitude:  event.Coordinate.Lat,
			Longitude: event.Coordinate.Lon,
		},
		Timestamp: event.Timestamp.Unix(),
	}
	return json.Marshal(msg)
}

func (p *FirePublisher) PublishFire(ctx context.Context, event *domain.FireEvent) error {
	body, err := encodeFire(event)
	if err != nil {
		return fmt.Errorf("marshal fire event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Body:         body,
	})
}

// Close closes the publishing channel.
func (p *FirePublisher) Close() error {
	return p.ch.Close()
}
