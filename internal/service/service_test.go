package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/mfa"
	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/repository"
)

var (
	_ Repository = (*repository.MemoryRepository)(nil)
	_ Repository = (*repository.PostgresRepository)(nil)
)

type stubTokens struct {
	err error
}

func (s *stubTokens) IssueToken(userID int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("token-%d", userID), nil
}

// stubOTP принимает единственный код validCode для любого непустого секрета.
type stubOTP struct {
	secret    string
	validCode string
}

func (s *stubOTP) Generate(account string) (*mfa.Key, error) {
	return &mfa.Key{Secret: s.secret, URL: "otpauth://totp/LaundryHub:" + account}, nil
}

func (s *stubOTP) Validate(code, secret string) bool {
	return secret != "" && code == s.validCode
}

// stubRepo переопределяет отдельные методы, остальные вызовы уходят во встроенный репозиторий.
type stubRepo struct {
	Repository

	getUserErr  error
	checkoutErr error
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	return s.Repository.GetUserByEmail(ctx, email)
}

func (s *stubRepo) Checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	return s.Repository.Checkout(ctx, userID, serviceIDs)
}

func newTestService(t *testing.T) (*Service, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	otp := &stubOTP{secret: "JBSWY3DPEHPK3PXP", validCode: "123456"}
	return NewService(repo, &stubTokens{}, otp, zap.NewNop()), repo
}

func register(t *testing.T, svc *Service, email string, role model.Role) *model.User {
	t.Helper()
	in := RegisterInput{Name: "Test", Email: email, Password: "secret1"}
	if role != model.RoleUser {
		in.Role = string(role)
	}
	res, err := svc.RegisterUser(context.Background(), in)
	require.NoError(t, err)
	return res.User
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRegisterUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("token-%d", res.User.ID), res.Token)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.True(t, res.User.WalletBalance.Equal(decimal.NewFromInt(50)))
	assert.NotEqual(t, []byte("secret1"), res.User.PasswordHash)

	_, err = svc.RegisterUser(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, model.ErrUserExists)
}

func TestRegisterUser_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "no name", in: RegisterInput{Email: "a@example.com", Password: "secret1"}},
		{name: "bad email", in: RegisterInput{Name: "A", Email: "a", Password: "secret1"}},
		{name: "short password", in: RegisterInput{Name: "A", Email: "a@example.com", Password: "123"}},
		{name: "admin self-registration", in: RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUser(context.Background(), tt.in)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestRegisterUser_TokenFailure(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewService(repo, &stubTokens{err: errors.New("boom")}, &stubOTP{}, zap.NewNop())

	_, err := svc.RegisterUser(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrValidation)
}

func TestAuthenticateUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "bob@example.com", model.RoleUser)

	res, err := svc.AuthenticateUser(ctx, Credentials{Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = svc.AuthenticateUser(ctx, Credentials{Email: "bob@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, Credentials{Email: "Bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestAuthenticateUser_StoreError(t *testing.T) {
	svc, repo := newTestService(t)
	storeErr := errors.New("connection reset")
	svc.repo = &stubRepo{Repository: repo, getUserErr: storeErr}

	_, err := svc.AuthenticateUser(context.Background(), Credentials{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, storeErr)
}

func TestMFAFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "mfa@example.com", model.RoleUser)

	err := svc.VerifyMFA(ctx, u.ID, "123456")
	assert.ErrorIs(t, err, model.ErrValidation, "verify before setup")

	key, err := svc.SetupMFA(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", key.Secret)

	res, err := svc.AuthenticateUser(ctx, Credentials{Email: "mfa@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, res.MFARequired, "mfa is not enabled until verified")

	assert.ErrorIs(t, svc.VerifyMFA(ctx, u.ID, "000000"), model.ErrInvalidMFACode)
	require.NoError(t, svc.VerifyMFA(ctx, u.ID, "123456"))

	res, err = svc.AuthenticateUser(ctx, Credentials{Email: "mfa@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, res.MFARequired)
	assert.Equal(t, u.ID, res.UserID)
	assert.Empty(t, res.Token)

	_, err = svc.CompleteMFALogin(ctx, u.ID, "000000")
	assert.ErrorIs(t, err, model.ErrInvalidMFACode)

	res, err = svc.CompleteMFALogin(ctx, u.ID, "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.CompleteMFALogin(ctx, 999, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestCompleteMFALogin_RequiresEnabledMFA(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "half@example.com", model.RoleUser)

	_, err := svc.SetupMFA(ctx, u)
	require.NoError(t, err)

	_, err = svc.CompleteMFALogin(ctx, u.ID, "123456")
	assert.ErrorIs(t, err, model.ErrInvalidMFACode)
}

func TestUpdateUserRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "role@example.com", model.RoleUser)

	updated, err := svc.UpdateUserRole(ctx, u.ID, model.RoleServiceProvider)
	require.NoError(t, err)
	assert.Equal(t, model.RoleServiceProvider, updated.Role)

	_, err = svc.UpdateUserRole(ctx, u.ID, model.Role("superuser"))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.UpdateUserRole(ctx, 999, model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestServiceOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := register(t, svc, "owner@example.com", model.RoleServiceProvider)
	other := register(t, svc, "other@example.com", model.RoleServiceProvider)
	admin := &model.User{ID: 1000, Role: model.RoleAdmin}

	created, err := svc.CreateService(ctx, owner, ServiceInput{Name: "Wash", Price: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, created.ProviderID)

	_, err = svc.CreateService(ctx, owner, ServiceInput{Price: dec("10")})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.CreateService(ctx, owner, ServiceInput{Name: "Bad", Price: dec("-1")})
	assert.ErrorIs(t, err, model.ErrValidation)

	price := dec("12.50")
	_, err = svc.UpdateService(ctx, other, created.ID, model.ServiceUpdate{Price: &price})
	assert.ErrorIs(t, err, model.ErrForbidden)

	updated, err := svc.UpdateService(ctx, owner, created.ID, model.ServiceUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "Wash", updated.Name)

	negative := dec("-5")
	_, err = svc.UpdateService(ctx, admin, created.ID, model.ServiceUpdate{Price: &negative})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.ErrorIs(t, svc.DeleteService(ctx, other, created.ID), model.ErrForbidden)
	require.NoError(t, svc.DeleteService(ctx, admin, created.ID))
	assert.ErrorIs(t, svc.DeleteService(ctx, admin, created.ID), model.ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "buyer@example.com", model.RoleUser)
	provider := register(t, svc, "p@example.com", model.RoleServiceProvider)
	s, err := repo.CreateService(ctx, model.Service{Name: "Iron", Price: dec("5"), ProviderID: provider.ID})
	require.NoError(t, err)

	o, err := svc.PlaceOrder(ctx, user, s.ID)
	require.NoError(t, err)

	same, err := svc.UpdateOrderStatus(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, same.Status)

	updated, err := svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatusPending)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatus("lost"))
	assert.ErrorIs(t, err, model.ErrValidation)

	updated, err = svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.UpdateOrderStatus(ctx, 999, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
