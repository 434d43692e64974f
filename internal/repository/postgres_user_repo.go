package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/mimamori/internal/model"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pgUniqueViolation = "23505"

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

// PostgresUserRepo はPostgreSQLを使用した保護者アカウントリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを紐付けシリアル番号込みで取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var serialNumbers pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.photo_url, u.created_at, u.updated_at,
		        COALESCE(array_agg(l.serial_number ORDER BY l.created_at) FILTER (WHERE l.serial_number IS NOT NULL), '{}')
		 FROM users u
		 LEFT JOIN watch_links l ON l.user_id = u.id
		 WHERE u.id = $1
		 GROUP BY u.id`,
		id,
	).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.PhotoURL,
		&user.CreatedAt, &user.UpdatedAt, &serialNumbers,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	user.SerialNumbers = serialNumbers
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var serialNumbers pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.password_hash, u.photo_url, u.created_at, u.updated_at,
		        COALESCE(array_agg(l.serial_number ORDER BY l.created_at) FILTER (WHERE l.serial_number IS NOT NULL), '{}')
		 FROM users u
		 LEFT JOIN watch_links l ON l.user_id = u.id
		 WHERE u.email = $1
		 GROUP BY u.id`,
		email,
	).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.PhotoURL,
		&user.CreatedAt, &user.UpdatedAt, &serialNumbers,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}

	user.SerialNumbers = serialNumbers
	return user, nil
}

// Create はユーザーを作成する。メールアドレスが重複している場合はErrDuplicateEmailを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, photo_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.PhotoURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateProfile はユーザーの表示名とプロフィール画像URLを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, name, photoURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, photo_url = $3, updated_at = now() WHERE id = $1`,
		id, name, photoURL,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return nil
}

// AddWatchLink はユーザーにウォッチを紐付ける。重複紐付けの場合はErrDuplicateLinkを返す。
func (r *PostgresUserRepo) AddWatchLink(ctx context.Context, userID, serialNumber string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_links (id, user_id, serial_number, created_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, serialNumber, time.Now(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("ウォッチの紐付けに失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。紐付けはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
