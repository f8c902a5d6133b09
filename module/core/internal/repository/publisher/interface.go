package publisher

import (
	"context"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

type FirePublisher interface {
	PublishFire(ctx context.Context, event *domain.FireEvent) error
}
