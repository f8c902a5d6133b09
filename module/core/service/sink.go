package service

import (
	"context"
	"errors"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/publisher"
)

var _ publisher.FirePublisher = FanoutSink(nil)

// FanoutSink delivers each fire event to every publisher. A failing publisher
// does not prevent delivery to the others.
type FanoutSink []publisher.FirePublisher

func (f FanoutSink) PublishFire(ctx context.Context, event *domain.FireEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishFire(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
