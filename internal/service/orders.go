package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/metrics"
	"github.com/mmeshcher/laundryhub/internal/model"
)

// PlaceOrder оформляет заказ одной услуги с оплатой из кошелька.
func (s *Service) PlaceOrder(ctx context.Context, user *model.User, serviceID int64) (*model.Order, error) {
	if _, err := s.repo.GetService(ctx, serviceID); err != nil {
		return nil, err
	}

	res, err := s.checkout(ctx, user.ID, []int64{serviceID})
	if err != nil {
		return nil, err
	}

	// Услугу могли удалить между проверкой и оформлением.
	if len(res.Orders) == 0 {
		return nil, fmt.Errorf("service %d: %w", serviceID, model.ErrNotFound)
	}
	return &res.Orders[0], nil
}

// Checkout оформляет корзину одной операцией: списывает сумму найденных услуг и создаёт по заказу на каждую.
// Ненайденные услуги перечисляются в CheckoutResult.Dropped.
func (s *Service) Checkout(ctx context.Context, user *model.User, serviceIDs []int64) (*model.CheckoutResult, error) {
	if len(serviceIDs) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", model.ErrValidation)
	}

	res, err := s.checkout(ctx, user.ID, serviceIDs)
	if err != nil {
		return nil, err
	}

	if len(res.Orders) == 0 {
		return nil, fmt.Errorf("none of the services in cart exist: %w", model.ErrNotFound)
	}
	if len(res.Dropped) > 0 {
		s.logger.Info("checkout dropped missing services",
			zap.Int64("userID", user.ID),
			zap.Int64s("dropped", res.Dropped),
		)
	}
	return res, nil
}

func (s *Service) checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error) {
	res, err := s.repo.Checkout(ctx, userID, serviceIDs)
	switch {
	case err == nil:
		if len(res.Orders) > 0 {
			metrics.ObserveCheckout("ok", res.Total)
		}
		return res, nil
	case errors.Is(err, model.ErrInsufficientFunds):
		metrics.ObserveCheckout("insufficient_funds", decimal.Zero)
	default:
		metrics.ObserveCheckout("error", decimal.Zero)
	}
	return nil, err
}

// ListMyOrders возвращает заказы пользователя.
func (s *Service) ListMyOrders(ctx context.Context, userID int64) ([]model.OrderView, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// ListOrders возвращает все заказы.
func (s *Service) ListOrders(ctx context.Context) ([]model.OrderView, error) {
	return s.repo.ListOrders(ctx)
}

// UpdateOrderStatus переводит заказ в статус to, если переход допустим.
// Пустой статус оставляет заказ без изменений.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, to model.OrderStatus) (*model.Order, error) {
	if to != "" && !to.Valid() {
		return nil, fmt.Errorf("%w: status must be one of: pending processing completed cancelled", model.ErrValidation)
	}

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if to == "" || to == o.Status {
		return o, nil
	}
	if !o.Status.CanTransition(to) {
		return nil, fmt.Errorf("order %d from %s to %s: %w", id, o.Status, to, model.ErrInvalidTransition)
	}

	return s.repo.UpdateOrderStatus(ctx, id, o.Status, to)
}

// DeleteOrder удаляет заказ. Списанные средства не возвращаются.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}
