package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
	"github.com/mmeshcher/laundryhub/internal/validation"
)

// ServiceInput содержит данные новой услуги. Image хранит имя уже сохранённого файла изображения.
type ServiceInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Image       string          `json:"image"`
}

// ListServices возвращает каталог услуг вместе с исполнителями.
func (s *Service) ListServices(ctx context.Context) ([]model.ServiceListing, error) {
	return s.repo.ListServices(ctx)
}

// CreateService публикует услугу от имени исполнителя provider.
func (s *Service) CreateService(ctx context.Context, provider *model.User, in ServiceInput) (*model.Service, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.Money("price", in.Price); err != nil {
		return nil, err
	}

	return s.repo.CreateService(ctx, model.Service{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ProviderID:  provider.ID,
		Image:       in.Image,
	})
}

// UpdateService частично обновляет услугу. Менять услугу может её исполнитель или администратор.
func (s *Service) UpdateService(ctx context.Context, actor *model.User, id int64, upd model.ServiceUpdate) (*model.Service, error) {
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be at least 0", model.ErrValidation)
		}
		if err := validation.Money("price", *upd.Price); err != nil {
			return nil, err
		}
	}

	if err := s.authorizeServiceOwner(ctx, actor, id); err != nil {
		return nil, err
	}

	return s.repo.UpdateService(ctx, id, upd)
}

// DeleteService удаляет услугу. Существующие заказы на неё сохраняются.
func (s *Service) DeleteService(ctx context.Context, actor *model.User, id int64) error {
	if err := s.authorizeServiceOwner(ctx, actor, id); err != nil {
		return err
	}

	return s.repo.DeleteService(ctx, id)
}

func (s *Service) authorizeServiceOwner(ctx context.Context, actor *model.User, id int64) error {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != model.RoleAdmin && svc.ProviderID != actor.ID {
		return model.ErrForbidden
	}
	return nil
}
