package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/metrics"
	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/validation"
)

// RequestFunds создаёт заявку на пополнение кошелька.
func (s *Service) RequestFunds(ctx context.Context, userID int64, amount decimal.Decimal) (*model.FundRequest, error) {
	if err := validation.PositiveAmount(amount); err != nil {
		return nil, err
	}

	req, err := s.repo.CreateFundRequest(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	metrics.ObserveFundRequest(string(model.FundRequestPending))
	return req, nil
}

// ListMyFundRequests возвращает заявки пользователя, новые первыми.
func (s *Service) ListMyFundRequests(ctx context.Context, userID int64) ([]model.FundRequest, error) {
	return s.repo.ListFundRequestsByUser(ctx, userID)
}

// ListPendingFundRequests возвращает необработанные заявки всех пользователей.
func (s *Service) ListPendingFundRequests(ctx context.Context) ([]model.FundRequestView, error) {
	return s.repo.ListPendingFundRequests(ctx)
}

// ApproveFundRequest одобряет заявку и зачисляет сумму автору.
// Если автор удалён, заявка одобряется без зачисления.
func (s *Service) ApproveFundRequest(ctx context.Context, id int64) (*model.FundRequest, error) {
	req, credited, err := s.repo.ApproveFundRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if !credited {
		s.logger.Warn("fund request approved for missing user, credit skipped",
			zap.Int64("requestID", req.ID),
			zap.Int64("userID", req.UserID),
			zap.String("amount", req.Amount.String()),
		)
	}

	metrics.ObserveFundRequest(string(req.Status))
	return req, nil
}

// RejectFundRequest отклоняет заявку без изменения баланса.
func (s *Service) RejectFundRequest(ctx context.Context, id int64) (*model.FundRequest, error) {
	req, err := s.repo.RejectFundRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.ObserveFundRequest(string(req.Status))
	return req, nil
}
