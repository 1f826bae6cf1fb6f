// Package handler содержит HTTP-обработчики REST API маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/mfa"
	"github.com/mmeshcher/laundryhub/internal/middleware"
	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/service"
	"github.com/mmeshcher/laundryhub/internal/upload"
)

func init() {
	// Клиенты ожидают денежные суммы числами, а не строками.
	decimal.MarshalJSONWithoutQuotes = true
}

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	AuthenticateUser(ctx context.Context, in service.Credentials) (*service.AuthResult, error)
	CompleteMFALogin(ctx context.Context, userID int64, code string) (*service.AuthResult, error)
	SetupMFA(ctx context.Context, user *model.User) (*mfa.Key, error)
	VerifyMFA(ctx context.Context, userID int64, code string) error
	GetProfile(ctx context.Context, userID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdateUserRole(ctx context.Context, id int64, role model.Role) (*model.User, error)

	ListServices(ctx context.Context) ([]model.ServiceListing, error)
	CreateService(ctx context.Context, provider *model.User, in service.ServiceInput) (*model.Service, error)
	UpdateService(ctx context.Context, actor *model.User, id int64, upd model.ServiceUpdate) (*model.Service, error)
	DeleteService(ctx context.Context, actor *model.User, id int64) error

	PlaceOrder(ctx context.Context, user *model.User, serviceID int64) (*model.Order, error)
	Checkout(ctx context.Context, user *model.User, serviceIDs []int64) (*model.CheckoutResult, error)
	ListMyOrders(ctx context.Context, userID int64) ([]model.OrderView, error)
	ListOrders(ctx context.Context) ([]model.OrderView, error)
	UpdateOrderStatus(ctx context.Context, id int64, to model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	RequestFunds(ctx context.Context, userID int64, amount decimal.Decimal) (*model.FundRequest, error)
	ListMyFundRequests(ctx context.Context, userID int64) ([]model.FundRequest, error)
	ListPendingFundRequests(ctx context.Context) ([]model.FundRequestView, error)
	ApproveFundRequest(ctx context.Context, id int64) (*model.FundRequest, error)
	RejectFundRequest(ctx context.Context, id int64) (*model.FundRequest, error)
}

// ImageStore сохраняет загруженные изображения услуг.
type ImageStore interface {
	SaveImage(originalName string, r io.Reader) (string, error)
	RemoveImage(name string) error
	Dir() string
}

// Handler реализует HTTP-обработчики REST API.
type Handler struct {
	service        Service
	images         ImageStore
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, images ImageStore, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:        s,
		images:         images,
		logger:         logger,
		authMiddleware: auth,
		rateLimiter:    limiter,
	}
}

type messageResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Msg: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// fail переводит ошибку бизнес-логики в HTTP-ответ. entity используется в тексте 404.
// Неожиданные ошибки логируются, а клиент получает общее сообщение.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
		writeMessage(w, http.StatusBadRequest, msg)
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, model.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, model.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Token is not valid")
	case errors.Is(err, model.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, model.ErrInsufficientFunds):
		writeMessage(w, http.StatusBadRequest, "Insufficient funds. Please recharge.")
	case errors.Is(err, model.ErrAlreadyProcessed):
		writeMessage(w, http.StatusBadRequest, "Request already processed")
	case errors.Is(err, model.ErrInvalidMFACode):
		writeMessage(w, http.StatusBadRequest, "Invalid MFA Code")
	case errors.Is(err, model.ErrInvalidTransition):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrUserExists):
		writeMessage(w, http.StatusConflict, "User already exists")
	case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// currentUser возвращает пользователя, прикреплённого AuthMiddleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
		return nil, false
	}
	return user, true
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeMessage(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeMessage(w, http.StatusOK, "ok")
}
