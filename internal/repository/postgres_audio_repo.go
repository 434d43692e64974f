package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/mimamori/internal/model"
)

// PostgresAudioRepo はPostgreSQLを使用した録音音声リポジトリ。
type PostgresAudioRepo struct {
	db *sql.DB
}

// NewPostgresAudioRepo はPostgresAudioRepoを生成する。
func NewPostgresAudioRepo(db *sql.DB) *PostgresAudioRepo {
	return &PostgresAudioRepo{db: db}
}

// Create は録音音声レコードを作成する。SeqとCreatedAtはDB側で採番した値を書き戻す。
func (r *PostgresAudioRepo) Create(ctx context.Context, audio *model.RecordedAudio) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO recorded_audio (id, serial_number, audio, emotion, confidence, classified_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING seq, created_at, updated_at`,
		audio.ID, audio.SerialNumber, audio.Audio,
		nullString(audio.Emotion), audio.Confidence, audio.ClassifiedAt,
	).Scan(&audio.Seq, &audio.CreatedAt, &audio.UpdatedAt)
	if err != nil {
		return fmt.Errorf("録音音声の作成に失敗しました: %w", err)
	}
	return nil
}

// FindLatestBySerial はシリアル番号の最新レコードを音声データ抜きで取得する。
// 音声本体は数MBになりうるため、一覧系の取得では読み込まない。
func (r *PostgresAudioRepo) FindLatestBySerial(ctx context.Context, serialNumber string) (*model.RecordedAudio, error) {
	audio := &model.RecordedAudio{}
	var emotion sql.NullString
	var classifiedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, seq, serial_number, emotion, confidence, classified_at, created_at, updated_at
		 FROM recorded_audio
		 WHERE serial_number = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT 1`,
		serialNumber,
	).Scan(
		&audio.ID, &audio.Seq, &audio.SerialNumber, &emotion, &audio.Confidence,
		&classifiedAt, &audio.CreatedAt, &audio.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新録音音声の取得に失敗しました: %w", err)
	}

	audio.Emotion = nullStringValue(emotion)
	if classifiedAt.Valid {
		audio.ClassifiedAt = &classifiedAt.Time
	}
	return audio, nil
}

// FindByID は指定IDのレコードを音声データ込みで取得する。見つからない場合はnilを返す。
func (r *PostgresAudioRepo) FindByID(ctx context.Context, id string) (*model.RecordedAudio, error) {
	audio := &model.RecordedAudio{}
	var emotion sql.NullString
	var classifiedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, seq, serial_number, audio, emotion, confidence, classified_at, created_at, updated_at
		 FROM recorded_audio
		 WHERE id = $1`,
		id,
	).Scan(
		&audio.ID, &audio.Seq, &audio.SerialNumber, &audio.Audio, &emotion,
		&audio.Confidence, &classifiedAt, &audio.CreatedAt, &audio.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("録音音声の取得に失敗しました: %w", err)
	}

	audio.Emotion = nullStringValue(emotion)
	if classifiedAt.Valid {
		audio.ClassifiedAt = &classifiedAt.Time
	}
	return audio, nil
}

// ListUnclassified は感情分類が未実施のレコードを古い順に取得する。
func (r *PostgresAudioRepo) ListUnclassified(ctx context.Context, limit int) ([]*model.RecordedAudio, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, seq, serial_number, audio, created_at, updated_at
		 FROM recorded_audio
		 WHERE classified_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("未分類音声の一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var audios []*model.RecordedAudio
	for rows.Next() {
		audio := &model.RecordedAudio{}
		if err := rows.Scan(
			&audio.ID, &audio.Seq, &audio.SerialNumber, &audio.Audio,
			&audio.CreatedAt, &audio.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("未分類音声の行読み取りに失敗しました: %w", err)
		}
		audios = append(audios, audio)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("未分類音声の走査に失敗しました: %w", err)
	}

	return audios, nil
}

// UpdateClassification は感情分類の結果を記録する。
func (r *PostgresAudioRepo) UpdateClassification(ctx context.Context, id, emotion string, confidence float64, classifiedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recorded_audio
		 SET emotion = $2, confidence = $3, classified_at = $4, updated_at = now()
		 WHERE id = $1`,
		id, emotion, confidence, classifiedAt,
	)
	if err != nil {
		return fmt.Errorf("感情分類結果の更新に失敗しました: %w", err)
	}
	return nil
}

// CountBySerial はシリアル番号に紐づくレコード数を返す。
func (r *PostgresAudioRepo) CountBySerial(ctx context.Context, serialNumber string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM recorded_audio WHERE serial_number = $1`,
		serialNumber,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("録音音声数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteOldest はシリアル番号に紐づく最古のレコードをn件削除し、削除件数を返す。
func (r *PostgresAudioRepo) DeleteOldest(ctx context.Context, serialNumber string, n int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM recorded_audio
		 WHERE id IN (
		     SELECT id FROM recorded_audio
		     WHERE serial_number = $1
		     ORDER BY created_at ASC, seq ASC
		     LIMIT $2
		 )`,
		serialNumber, n,
	)
	if err != nil {
		return 0, fmt.Errorf("古い録音音声の削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return int(deleted), nil
}

// DeleteOlderThan はcutoffより古いレコードを全シリアル横断で削除し、削除件数を返す。
func (r *PostgresAudioRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM recorded_audio WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れ録音音声の削除に失敗しました: %w", err)
	}
	return result.RowsAffected()
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringValue はNULLを空文字列に変換する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ AudioRepository = (*PostgresAudioRepo)(nil)
