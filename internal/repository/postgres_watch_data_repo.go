package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
)

// PostgresWatchDataRepo はPostgreSQLを使用したテレメトリリポジトリ。
type PostgresWatchDataRepo struct {
	db *sql.DB
}

// NewPostgresWatchDataRepo はPostgresWatchDataRepoを生成する。
func NewPostgresWatchDataRepo(db *sql.DB) *PostgresWatchDataRepo {
	return &PostgresWatchDataRepo{db: db}
}

// Create はテレメトリレコードを作成する。SeqとCreatedAtはDB側で採番した値を書き戻す。
func (r *PostgresWatchDataRepo) Create(ctx context.Context, data *model.WatchData) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO watch_data (id, serial_number, heart_rate, step_count, longitude, latitude, battery_level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING seq, created_at`,
		data.ID, data.SerialNumber, data.HeartRate, data.StepCount,
		data.Longitude, data.Latitude, data.BatteryLevel,
	).Scan(&data.Seq, &data.CreatedAt)
	if err != nil {
		return fmt.Errorf("テレメトリの作成に失敗しました: %w", err)
	}
	return nil
}

// FindLatestBySerial はシリアル番号の最新レコードを取得する。見つからない場合はnilを返す。
// created_atが同時刻の場合はseqの大きい（後に挿入された）ものを優先する。
func (r *PostgresWatchDataRepo) FindLatestBySerial(ctx context.Context, serialNumber string) (*model.WatchData, error) {
	data := &model.WatchData{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, seq, serial_number, heart_rate, step_count, longitude, latitude, battery_level, created_at
		 FROM watch_data
		 WHERE serial_number = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT 1`,
		serialNumber,
	).Scan(
		&data.ID, &data.Seq, &data.SerialNumber, &data.HeartRate, &data.StepCount,
		&data.Longitude, &data.Latitude, &data.BatteryLevel, &data.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新テレメトリの取得に失敗しました: %w", err)
	}
	return data, nil
}

// CountBySerial はシリアル番号に紐づくレコード数を返す。
func (r *PostgresWatchDataRepo) CountBySerial(ctx context.Context, serialNumber string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM watch_data WHERE serial_number = $1`,
		serialNumber,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("テレメトリ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteOldest はシリアル番号に紐づく最古のレコードをn件削除し、削除件数を返す。
func (r *PostgresWatchDataRepo) DeleteOldest(ctx context.Context, serialNumber string, n int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM watch_data
		 WHERE id IN (
		     SELECT id FROM watch_data
		     WHERE serial_number = $1
		     ORDER BY created_at ASC, seq ASC
		     LIMIT $2
		 )`,
		serialNumber, n,
	)
	if err != nil {
		return 0, fmt.Errorf("古いテレメトリの削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return int(deleted), nil
}

// DeleteOlderThan はcutoffより古いレコードを全シリアル横断で削除し、削除件数を返す。
func (r *PostgresWatchDataRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM watch_data WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れテレメトリの削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ WatchDataRepository = (*PostgresWatchDataRepo)(nil)
