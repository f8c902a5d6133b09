package database

import (
	"context"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
)

type AlarmRepository interface {
	Insert(ctx context.Context, alarm *domain.Alarm) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Alarm, error)
	// MaxID returns the highest id ever stored, including removed alarms.
	MaxID(ctx context.Context) (int64, error)
}
