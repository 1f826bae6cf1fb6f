// Package service реализует бизнес-логику маркетплейса прачечных услуг.
package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/mfa"
	"github.com/mmeshcher/laundryhub/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error)
	SetMFASecret(ctx context.Context, id int64, secret string) error
	EnableMFA(ctx context.Context, id int64) error

	CreateService(ctx context.Context, s model.Service) (*model.Service, error)
	GetService(ctx context.Context, id int64) (*model.Service, error)
	ListServices(ctx context.Context) ([]model.ServiceListing, error)
	UpdateService(ctx context.Context, id int64, upd model.ServiceUpdate) (*model.Service, error)
	DeleteService(ctx context.Context, id int64) error

	// TryDebit атомарно списывает amount, только если баланс не станет отрицательным.
	TryDebit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.OrderView, error)
	ListOrders(ctx context.Context) ([]model.OrderView, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	CreateFundRequest(ctx context.Context, userID int64, amount decimal.Decimal) (*model.FundRequest, error)
	ListFundRequestsByUser(ctx context.Context, userID int64) ([]model.FundRequest, error)
	ListPendingFundRequests(ctx context.Context) ([]model.FundRequestView, error)
	ApproveFundRequest(ctx context.Context, id int64) (*model.FundRequest, bool, error)
	RejectFundRequest(ctx context.Context, id int64) (*model.FundRequest, error)
}

// TokenIssuer выпускает токены доступа.
type TokenIssuer interface {
	IssueToken(userID int64) (string, error)
}

// OTP генерирует секреты второго фактора и проверяет одноразовые коды.
type OTP interface {
	Generate(account string) (*mfa.Key, error)
	Validate(code, secret string) bool
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	otp    OTP
	logger *zap.Logger
}

// NewService создаёт новый сервис.
func NewService(repo Repository, tokens TokenIssuer, otp OTP, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		otp:    otp,
		logger: logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
