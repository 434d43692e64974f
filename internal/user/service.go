// Package user は保護者アカウントのプロフィール管理とウォッチ紐付けのドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/mimamori/internal/model"
	"github.com/hitoshi/mimamori/internal/repository"
	"github.com/hitoshi/mimamori/internal/security"
)

// PhotoURLValidator はプロフィール画像URLの検証インターフェース。
type PhotoURLValidator interface {
	ValidatePhotoURL(rawURL string) error
}

// Service はプロフィール管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.InputSanitizerService
	urlGuard  PhotoURLValidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sanitizer security.InputSanitizerService,
	urlGuard PhotoURLValidator,
) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
	}
}

// GetProfile は指定ユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は表示名とプロフィール画像URLを更新する。
// nameとphotoURLはnilの場合は変更しない。両方nilの場合はエラーを返す。
// 画像URLは登録前に安全性を検証し、空文字列の指定は画像の削除として扱う。
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, photoURL *string) (*model.User, error) {
	if name == nil && photoURL == nil {
		return nil, model.NewInvalidRequestError("更新する項目が指定されていません")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	newName := user.Name
	if name != nil {
		newName = s.sanitizer.SanitizeText(*name)
	}

	newPhotoURL := user.PhotoURL
	if photoURL != nil {
		if *photoURL != "" {
			if err := s.urlGuard.ValidatePhotoURL(*photoURL); err != nil {
				return nil, model.NewInvalidPhotoURLError(err.Error())
			}
		}
		newPhotoURL = *photoURL
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, newName, newPhotoURL); err != nil {
		return nil, err
	}

	updated, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("更新後のプロフィール取得に失敗しました: %w", err)
	}
	return updated, nil
}

// LinkWatch はユーザーにウォッチを紐付け、更新後のプロフィールを返す。
// 同一ユーザーへの重複紐付けの場合はWATCH_ALREADY_LINKEDエラーを返す。
func (s *Service) LinkWatch(ctx context.Context, userID, serialNumber string) (*model.User, error) {
	if serialNumber == "" {
		return nil, model.NewSerialRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := s.userRepo.AddWatchLink(ctx, userID, serialNumber); err != nil {
		if errors.Is(err, repository.ErrDuplicateLink) {
			return nil, model.NewWatchAlreadyLinkedError(serialNumber)
		}
		return nil, err
	}

	slog.Info("watch linked",
		slog.String("user_id", userID),
		slog.String("serial_number", serialNumber),
	)

	updated, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("紐付け後のプロフィール取得に失敗しました: %w", err)
	}
	return updated, nil
}

// Withdraw はユーザーの退会処理を実行する。
// ウォッチ紐付けはCASCADE削除される。テレメトリと録音音声はウォッチに属するため残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return err
	}

	slog.Info("退会処理が完了しました", slog.String("user_id", userID))

	return nil
}
