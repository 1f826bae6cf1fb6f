package handler

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
)

type userResponse struct {
	ID            int64           `json:"_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          model.Role      `json:"role"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	MFAEnabled    bool            `json:"isMfaEnabled"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		WalletBalance: u.WalletBalance,
		MFAEnabled:    u.MFAEnabled,
		CreatedAt:     u.CreatedAt,
	}
}

type authUser struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          model.Role      `json:"role"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  authUser `json:"user"`
}

type mfaChallengeResponse struct {
	MFARequired bool  `json:"mfaRequired"`
	UserID      int64 `json:"userId"`
}

type serviceResponse struct {
	ID          int64           `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ProviderID  int64           `json:"providerId"`
	Provider    *model.UserRef  `json:"provider"`
	Image       *string         `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newServiceResponse(s model.Service, provider *model.UserRef) serviceResponse {
	resp := serviceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		ProviderID:  s.ProviderID,
		Provider:    provider,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Image != "" {
		resp.Image = lo.ToPtr(s.Image)
	}
	return resp
}

type orderResponse struct {
	ID        int64             `json:"_id"`
	UserID    int64             `json:"userId"`
	ServiceID int64             `json:"serviceId"`
	Status    model.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func newOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		ServiceID: o.ServiceID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// Удалённые услуга или покупатель отдаются как null.
type orderViewResponse struct {
	orderResponse
	User    *model.UserRef   `json:"user"`
	Service *serviceResponse `json:"service"`
}

func newOrderViewResponse(v model.OrderView) orderViewResponse {
	resp := orderViewResponse{
		orderResponse: newOrderResponse(v.Order),
		User:          v.User,
	}
	if v.Service != nil {
		resp.Service = lo.ToPtr(newServiceResponse(*v.Service, nil))
	}
	return resp
}

type checkoutResponse struct {
	Msg        string          `json:"msg"`
	Orders     []orderResponse `json:"orders"`
	Total      decimal.Decimal `json:"total"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Dropped    []int64         `json:"dropped"`
}

type fundRequestResponse struct {
	ID        int64                   `json:"_id"`
	UserID    int64                   `json:"userId"`
	Amount    decimal.Decimal         `json:"amount"`
	Status    model.FundRequestStatus `json:"status"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func newFundRequestResponse(fr model.FundRequest) fundRequestResponse {
	return fundRequestResponse{
		ID:        fr.ID,
		UserID:    fr.UserID,
		Amount:    fr.Amount,
		Status:    fr.Status,
		CreatedAt: fr.CreatedAt,
		UpdatedAt: fr.UpdatedAt,
	}
}

type fundRequestViewResponse struct {
	fundRequestResponse
	User *model.UserRef `json:"user"`
}

type fundRequestResult struct {
	Msg     string              `json:"msg"`
	Request fundRequestResponse `json:"request"`
}
