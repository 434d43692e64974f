package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mimamori/internal/model"
)

// PostgresZoneRepo はPostgreSQLを使用した許可エリアリポジトリ。
type PostgresZoneRepo struct {
	db *sql.DB
}

// NewPostgresZoneRepo はPostgresZoneRepoを生成する。
func NewPostgresZoneRepo(db *sql.DB) *PostgresZoneRepo {
	return &PostgresZoneRepo{db: db}
}

// Create は許可エリアを作成する。
func (r *PostgresZoneRepo) Create(ctx context.Context, zone *model.AllowedZone) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO allowed_zones (id, serial_number, zone_name, center_lat, center_lng, radius_meters, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		zone.ID, zone.SerialNumber, zone.ZoneName,
		zone.CenterLat, zone.CenterLng, zone.RadiusMeters,
		zone.CreatedAt, zone.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("許可エリアの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの許可エリアを取得する。見つからない場合はnilを返す。
func (r *PostgresZoneRepo) FindByID(ctx context.Context, id string) (*model.AllowedZone, error) {
	zone := &model.AllowedZone{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, serial_number, zone_name, center_lat, center_lng, radius_meters, created_at, updated_at
		 FROM allowed_zones WHERE id = $1`,
		id,
	).Scan(
		&zone.ID, &zone.SerialNumber, &zone.ZoneName,
		&zone.CenterLat, &zone.CenterLng, &zone.RadiusMeters,
		&zone.CreatedAt, &zone.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("許可エリアの取得に失敗しました: %w", err)
	}
	return zone, nil
}

// ListBySerial はシリアル番号の許可エリア一覧を作成日時の昇順で返す。
func (r *PostgresZoneRepo) ListBySerial(ctx context.Context, serialNumber string) ([]*model.AllowedZone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, serial_number, zone_name, center_lat, center_lng, radius_meters, created_at, updated_at
		 FROM allowed_zones
		 WHERE serial_number = $1
		 ORDER BY created_at ASC`,
		serialNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("許可エリア一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var zones []*model.AllowedZone
	for rows.Next() {
		zone := &model.AllowedZone{}
		if err := rows.Scan(
			&zone.ID, &zone.SerialNumber, &zone.ZoneName,
			&zone.CenterLat, &zone.CenterLng, &zone.RadiusMeters,
			&zone.CreatedAt, &zone.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("許可エリア行の読み取りに失敗しました: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("許可エリア一覧の走査に失敗しました: %w", err)
	}

	return zones, nil
}

// DeleteByID は指定IDの許可エリアを削除する。削除件数を返す。
func (r *PostgresZoneRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM allowed_zones WHERE id = $1`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("許可エリアの削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ ZoneRepository = (*PostgresZoneRepo)(nil)
