package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/laundryhub/internal/mfa"
	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/validation"
)

// RegisterInput содержит данные для регистрации. Роль admin при регистрации не выдаётся.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=service_provider user"`
}

// Credentials содержит email и пароль для входа.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult содержит итог регистрации или входа. Если MFARequired, токен не выпускается
// и вход нужно завершить через CompleteMFALogin.
type AuthResult struct {
	Token       string
	User        *model.User
	MFARequired bool
	UserID      int64
}

// RegisterUser регистрирует нового пользователя со стартовым балансом и выпускает для него токен.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role := model.RoleUser
	if in.Role != "" {
		role = model.Role(in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, model.User{
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          role,
		WalletBalance: model.DefaultWalletBalance,
	})
	if err != nil {
		return nil, err
	}

	return s.authenticated(u)
}

// AuthenticateUser проверяет email и пароль. Для пользователя с включённым вторым фактором
// возвращает запрос одноразового кода вместо токена.
func (s *Service) AuthenticateUser(ctx context.Context, in Credentials) (*AuthResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if u.MFAEnabled {
		return &AuthResult{MFARequired: true, UserID: u.ID}, nil
	}

	return s.authenticated(u)
}

// CompleteMFALogin завершает вход пользователя с включённым вторым фактором.
func (s *Service) CompleteMFALogin(ctx context.Context, userID int64, code string) (*AuthResult, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.MFAEnabled || !s.otp.Validate(code, u.MFASecret) {
		return nil, model.ErrInvalidMFACode
	}

	return s.authenticated(u)
}

func (s *Service) authenticated(u *model.User) (*AuthResult, error) {
	token, err := s.tokens.IssueToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// SetupMFA генерирует и сохраняет новый секрет второго фактора. Второй фактор включается
// только после подтверждения кода через VerifyMFA.
func (s *Service) SetupMFA(ctx context.Context, user *model.User) (*mfa.Key, error) {
	key, err := s.otp.Generate(user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetMFASecret(ctx, user.ID, key.Secret); err != nil {
		return nil, err
	}

	return key, nil
}

// VerifyMFA проверяет код против сохранённого секрета и включает второй фактор.
func (s *Service) VerifyMFA(ctx context.Context, userID int64, code string) error {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if u.MFASecret == "" {
		return fmt.Errorf("%w: mfa is not set up", model.ErrValidation)
	}
	if !s.otp.Validate(code, u.MFASecret) {
		return model.ErrInvalidMFACode
	}

	if err := s.repo.EnableMFA(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("mfa enabled", zap.Int64("userID", userID))
	return nil
}

// GetProfile возвращает пользователя по идентификатору.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// DeleteUser удаляет пользователя. Его заказы, услуги и заявки остаются и ссылаются на удалённого пользователя.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// UpdateUserRole меняет роль пользователя.
func (s *Service) UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be one of: admin service_provider user", model.ErrValidation)
	}
	return s.repo.UpdateUserRole(ctx, id, role)
}
