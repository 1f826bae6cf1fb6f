package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/laundryhub/internal/model"
)

func balanceOf(t *testing.T, svc *Service, userID int64) decimal.Decimal {
	t.Helper()
	u, err := svc.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	return u.WalletBalance
}

func TestCheckout_SingleItemExample(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "u@example.com", model.RoleUser)
	s, err := repo.CreateService(ctx, model.Service{Name: "Dry clean", Price: dec("30")})
	require.NoError(t, err)

	o, err := svc.PlaceOrder(ctx, user, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("20")))

	_, err = svc.PlaceOrder(ctx, user, s.ID)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("20")))

	orders, err := svc.ListMyOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPlaceOrder_MissingService(t *testing.T) {
	svc, _ := newTestService(t)
	user := register(t, svc, "u@example.com", model.RoleUser)

	_, err := svc.PlaceOrder(context.Background(), user, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("50")))
}

func TestCheckout_Cart(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "cart@example.com", model.RoleUser)
	a, err := repo.CreateService(ctx, model.Service{Name: "A", Price: dec("20.25")})
	require.NoError(t, err)
	b, err := repo.CreateService(ctx, model.Service{Name: "B", Price: dec("29.75")})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, user, nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Checkout(ctx, user, []int64{9998, 9999})
	assert.ErrorIs(t, err, model.ErrNotFound)

	res, err := svc.Checkout(ctx, user, []int64{a.ID, 9999, b.ID})
	require.NoError(t, err)
	assert.Len(t, res.Orders, 2)
	assert.Equal(t, []int64{9999}, res.Dropped)
	assert.True(t, res.Total.Equal(dec("50")))
	assert.True(t, res.NewBalance.IsZero())
	assert.True(t, balanceOf(t, svc, user.ID).IsZero())
}

func TestCheckout_StoreErrorPropagates(t *testing.T) {
	svc, repo := newTestService(t)
	user := register(t, svc, "err@example.com", model.RoleUser)
	svc.repo = &stubRepo{Repository: repo, checkoutErr: assert.AnError}

	_, err := svc.Checkout(context.Background(), user, []int64{1})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFundRequestExample(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "fund@example.com", model.RoleUser)

	_, err := svc.RequestFunds(ctx, user.ID, decimal.Zero)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.RequestFunds(ctx, user.ID, dec("-10"))
	assert.ErrorIs(t, err, model.ErrValidation)

	req, err := svc.RequestFunds(ctx, user.ID, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, model.FundRequestPending, req.Status)

	pending, err := svc.ListPendingFundRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fund@example.com", pending[0].User.Email)

	approved, err := svc.ApproveFundRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FundRequestApproved, approved.Status)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("150")))

	_, err = svc.ApproveFundRequest(ctx, req.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyProcessed)
	_, err = svc.RejectFundRequest(ctx, req.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyProcessed)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("150")))

	pending, err = svc.ListPendingFundRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	mine, err := svc.ListMyFundRequests(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.FundRequestApproved, mine[0].Status)
}

func TestRejectFundRequest_KeepsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "rej@example.com", model.RoleUser)

	req, err := svc.RequestFunds(ctx, user.ID, dec("25"))
	require.NoError(t, err)

	rejected, err := svc.RejectFundRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FundRequestRejected, rejected.Status)
	assert.True(t, balanceOf(t, svc, user.ID).Equal(dec("50")))

	_, err = svc.ApproveFundRequest(ctx, req.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyProcessed)
}

func TestApproveFundRequest_DeletedUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "gone@example.com", model.RoleUser)

	req, err := svc.RequestFunds(ctx, user.ID, dec("10"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	approved, err := svc.ApproveFundRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FundRequestApproved, approved.Status)
}

func TestPlaceOrder_ConcurrentNeverOverdraws(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user := register(t, svc, "race@example.com", model.RoleUser)
	s, err := repo.CreateService(ctx, model.Service{Name: "Wash", Price: dec("10")})
	require.NoError(t, err)

	var (
		wg                   sync.WaitGroup
		placed, insufficient atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, user, s.ID)
			switch {
			case err == nil:
				placed.Add(1)
			case errors.Is(err, model.ErrInsufficientFunds):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), placed.Load())
	assert.Equal(t, int32(15), insufficient.Load())
	assert.True(t, balanceOf(t, svc, user.ID).IsZero())

	orders, err := svc.ListMyOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 5)
}

func TestTryDebit_ThroughRepository(t *testing.T) {
	svc, _ := newTestService(t)
	user := register(t, svc, "debit@example.com", model.RoleUser)

	var repo Repository = svc.repo
	balance, err := repo.TryDebit(context.Background(), user.ID, dec("50"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = repo.TryDebit(context.Background(), user.ID, dec("0.01"))
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
}
