package postgres

import (
	"context"
	"database/sql"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/database"
)

var _ database.AlarmRepository = (*AlarmRepo)(nil)

const schema = `CREATE TABLE IF NOT EXISTS alarms (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	radius_meters DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	removed_at    TIMESTAMPTZ
)`

// AlarmRepo stores alarms in postgres. Removed alarms are kept with
// removed_at set so their ids stay reserved across restarts.
type AlarmRepo struct {
	db *sql.DB
}

func NewAlarmRepo(db *sql.DB) *AlarmRepo {
	return &AlarmRepo{db: db}
}

func (r *AlarmRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *AlarmRepo) Insert(ctx context.Context, alarm *domain.Alarm) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alarms (id, name, latitude, longitude, radius_meters, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		alarm.ID, alarm.Name, alarm.Center.Lat, alarm.Center.Lon, alarm.RadiusMeters, alarm.CreatedAt,
	)
	return err
}

func (r *AlarmRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alarms SET removed_at = NOW() WHERE id = $1 AND removed_at IS NULL`,
		id,
	)
	return err
}

func (r *AlarmRepo) List(ctx context.Context) ([]domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude, radius_meters, created_at FROM alarms WHERE removed_at IS NULL ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Alarm
	for rows.Next() {
		var a domain.Alarm
		if err := rows.Scan(&a.ID, &a.Name, &a.Center.Lat, &a.Center.Lon, &a.RadiusMeters, &a.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (r *AlarmRepo) MaxID(ctx context.Context) (int64, error) {
	var id int64
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM alarms`)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
