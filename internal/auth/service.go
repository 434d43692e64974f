// Package auth は保護者アカウントの登録とログインのドメインロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/mimamori/internal/metrics"
	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/security"
	"github.com/hitoshi/mimamori/internal/token"
)

// TokenIssuer はトークンペア発行のインターフェース。
type TokenIssuer interface {
	IssuePair(userID, email string) (*token.Pair, error)
}

// Service は登録・ログインのサービス層。
type Service struct {
	userRepo   repository.UserRepository
	issuer     TokenIssuer
	sanitizer  security.InputSanitizerService
	collector  metrics.MetricsCollector
	bcryptCost int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	issuer TokenIssuer,
	sanitizer security.InputSanitizerService,
	collector metrics.MetricsCollector,
	bcryptCost int,
) *Service {
	return &Service{
		userRepo:   userRepo,
		issuer:     issuer,
		sanitizer:  sanitizer,
		collector:  collector,
		bcryptCost: bcryptCost,
	}
}

// Register は保護者アカウントを新規登録し、トークンペアを発行する。
// メールアドレスが既に登録済みの場合はEMAIL_IN_USEエラーを返す。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, *token.Pair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidRequestError("メールアドレスとパスワードは必須です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         s.sanitizer.SanitizeText(name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, model.NewEmailInUseError()
		}
		return nil, nil, err
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user registered", slog.String("user_id", user.ID))

	return user, pair, nil
}

// Login はメールアドレスとパスワードで認証し、トークンペアを発行する。
// メールアドレス未登録とパスワード不一致は区別せず、同一のエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *token.Pair, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		s.collector.RecordAuthFailure("invalid_credentials")
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.collector.RecordAuthFailure("invalid_credentials")
		return nil, nil, model.NewInvalidCredentialsError()
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, pair, nil
}
