package handler

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/middleware"
	"github.com/mmeshcher/laundryhub/internal/model"
)

type fundRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
}

// RequestFunds создаёт заявку на пополнение кошелька.
func (h *Handler) RequestFunds(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req fundRequestBody
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	fr, err := h.service.RequestFunds(r.Context(), user.ID, req.Amount)
	if err != nil {
		h.fail(w, r, err, "Request")
		return
	}

	writeJSON(w, http.StatusOK, fundRequestResult{
		Msg:     "Request submitted successfully",
		Request: newFundRequestResponse(*fr),
	})
}

// MyFundRequests возвращает заявки текущего пользователя.
func (h *Handler) MyFundRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requests, err := h.service.ListMyFundRequests(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "Request")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(requests, func(fr model.FundRequest, _ int) fundRequestResponse {
		return newFundRequestResponse(fr)
	}))
}

// PendingFundRequests возвращает необработанные заявки всех пользователей.
func (h *Handler) PendingFundRequests(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListPendingFundRequests(r.Context())
	if err != nil {
		h.fail(w, r, err, "Request")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(views, func(v model.FundRequestView, _ int) fundRequestViewResponse {
		return fundRequestViewResponse{fundRequestResponse: newFundRequestResponse(v.FundRequest), User: v.User}
	}))
}

// ApproveFundRequest одобряет заявку и пополняет баланс автора.
func (h *Handler) ApproveFundRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	fr, err := h.service.ApproveFundRequest(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Request")
		return
	}

	if admin, ok := middleware.UserFromContext(r.Context()); ok {
		h.logger.Info("fund request approved",
			zap.Int64("requestID", fr.ID),
			zap.Int64("adminID", admin.ID),
			zap.String("amount", fr.Amount.String()),
		)
	}

	writeJSON(w, http.StatusOK, fundRequestResult{
		Msg:     "Request approved and balance updated",
		Request: newFundRequestResponse(*fr),
	})
}

// RejectFundRequest отклоняет заявку.
func (h *Handler) RejectFundRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	fr, err := h.service.RejectFundRequest(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Request")
		return
	}

	writeJSON(w, http.StatusOK, fundRequestResult{
		Msg:     "Request rejected",
		Request: newFundRequestResponse(*fr),
	})
}
