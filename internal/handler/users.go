package handler

import (
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/service"
)

func (h *Handler) writeAuth(w http.ResponseWriter, res *service.AuthResult) {
	if res.MFARequired {
		writeJSON(w, http.StatusOK, mfaChallengeResponse{MFARequired: true, UserID: res.UserID})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token: res.Token,
		User: authUser{
			ID:            res.User.ID,
			Name:          res.User.Name,
			Email:         res.User.Email,
			Role:          res.User.Role,
			WalletBalance: res.User.WalletBalance,
		},
	})
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	h.logger.Info("user registered", zap.Int64("userID", res.User.ID), zap.String("role", string(res.User.Role)))
	h.writeAuth(w, res)
}

// Login выполняет аутентификацию по email и паролю.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.AuthenticateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	h.writeAuth(w, res)
}

type mfaLoginRequest struct {
	UserID int64  `json:"userId"`
	Token  string `json:"token"`
}

// LoginMFA завершает вход одноразовым кодом.
func (h *Handler) LoginMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.CompleteMFALogin(r.Context(), req.UserID, req.Token)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	h.writeAuth(w, res)
}

// Me возвращает профиль текущего пользователя вместе с балансом.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(*profile))
}

type mfaSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
	QRCode string `json:"qrCode"`
}

// SetupMFA выдаёт новый секрет второго фактора и QR-код для приложения-аутентификатора.
func (h *Handler) SetupMFA(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	key, err := h.service.SetupMFA(r.Context(), user)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeJSON(w, http.StatusOK, mfaSetupResponse{Secret: key.Secret, URL: key.URL, QRCode: key.QRCode})
}

type mfaVerifyRequest struct {
	Token string `json:"token"`
}

// VerifyMFA подтверждает код и включает второй фактор.
func (h *Handler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req mfaVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.VerifyMFA(r.Context(), user.ID, req.Token); err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeMessage(w, http.StatusOK, "MFA Enabled Successfully")
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(users, func(u model.User, _ int) userResponse {
		return newUserResponse(u)
	}))
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeMessage(w, http.StatusOK, "User deleted successfully")
}

type roleRequest struct {
	Role model.Role `json:"role"`
}

// UpdateUserRole меняет роль пользователя.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateUserRole(r.Context(), id, req.Role)
	if err != nil {
		h.fail(w, r, err, "User")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(*user))
}
