package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/service"
	"github.com/mmeshcher/laundryhub/internal/upload"
)

const maxMultipartMemory = upload.MaxImageSize + 1<<20

// ListServices возвращает каталог услуг.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.ListServices(r.Context())
	if err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(listings, func(l model.ServiceListing, _ int) serviceResponse {
		return newServiceResponse(l.Service, l.Provider)
	}))
}

// CreateService публикует услугу. Принимает multipart/form-data с необязательным файлом image
// или JSON без изображения.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	in, err := h.serviceInput(w, r)
	if err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	s, err := h.service.CreateService(r.Context(), user, in)
	if err != nil {
		h.discardImage(in.Image)
		h.fail(w, r, err, "Service")
		return
	}

	writeJSON(w, http.StatusOK, newServiceResponse(*s, nil))
}

func (h *Handler) serviceInput(w http.ResponseWriter, r *http.Request) (service.ServiceInput, error) {
	var in service.ServiceInput

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req serviceRequest
		if err := decodeJSON(r, &req); err != nil {
			return in, fmt.Errorf("%w: invalid request body", model.ErrValidation)
		}
		if req.Price == nil {
			return in, fmt.Errorf("%w: price is required", model.ErrValidation)
		}
		in.Name, in.Description, in.Price = req.Name, req.Description, *req.Price
		return in, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, upload.ErrTooLarge
		}
		return in, fmt.Errorf("%w: invalid multipart form", model.ErrValidation)
	}

	in.Name = r.FormValue("name")
	in.Description = r.FormValue("description")

	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return in, fmt.Errorf("%w: price is required", model.ErrValidation)
	}
	in.Price = price

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return in, fmt.Errorf("%w: invalid image", model.ErrValidation)
	}
	defer file.Close()

	name, err := h.images.SaveImage(header.Filename, file)
	if err != nil {
		return in, err
	}
	in.Image = name
	return in, nil
}

// discardImage удаляет изображение, на которое не ссылается ни одна услуга.
func (h *Handler) discardImage(name string) {
	if name == "" {
		return
	}
	if err := h.images.RemoveImage(name); err != nil {
		h.logger.Warn("failed to remove orphaned image", zap.String("image", name), zap.Error(err))
	}
}

type serviceRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

// UpdateService частично обновляет услугу.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid service id")
		return
	}

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.service.UpdateService(r.Context(), user, id, model.ServiceUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	writeJSON(w, http.StatusOK, newServiceResponse(*s, nil))
}

// DeleteService удаляет услугу.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid service id")
		return
	}

	if err := h.service.DeleteService(r.Context(), user, id); err != nil {
		h.fail(w, r, err, "Service")
		return
	}

	writeMessage(w, http.StatusOK, "Service deleted successfully")
}
