package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/laundryhub/internal/model"
)

const serviceColumns = `id, name, description, price, provider_id, image, created_at, updated_at`

func scanService(row pgx.Row) (*model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.ProviderID, &s.Image, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateService сохраняет новую услугу.
func (r *PostgresRepository) CreateService(ctx context.Context, s model.Service) (*model.Service, error) {
	created, err := scanService(r.pool.QueryRow(ctx,
		`INSERT INTO services (name, description, price, provider_id, image)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+serviceColumns,
		s.Name, s.Description, s.Price, s.ProviderID, s.Image,
	))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return created, nil
}

// GetService возвращает услугу по идентификатору.
func (r *PostgresRepository) GetService(ctx context.Context, id int64) (*model.Service, error) {
	s, err := scanService(r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

// ListServices возвращает все услуги вместе с данными исполнителей.
func (r *PostgresRepository) ListServices(ctx context.Context) ([]model.ServiceListing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, s.description, s.price, s.provider_id, s.image, s.created_at, s.updated_at,
		        u.name, u.email
		 FROM services s
		 LEFT JOIN users u ON u.id = s.provider_id
		 ORDER BY s.created_at DESC, s.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var res []model.ServiceListing
	for rows.Next() {
		var (
			l             model.ServiceListing
			providerName  *string
			providerEmail *string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Price, &l.ProviderID, &l.Image, &l.CreatedAt, &l.UpdatedAt,
			&providerName, &providerEmail); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		if providerName != nil {
			l.Provider = &model.UserRef{ID: l.ProviderID, Name: *providerName, Email: deref(providerEmail)}
		}
		res = append(res, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateService обновляет непустые поля услуги.
func (r *PostgresRepository) UpdateService(ctx context.Context, id int64, upd model.ServiceUpdate) (*model.Service, error) {
	s, err := scanService(r.pool.QueryRow(ctx,
		`UPDATE services SET
		     name = COALESCE(NULLIF($2, ''), name),
		     description = COALESCE(NULLIF($3, ''), description),
		     price = COALESCE($4, price),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+serviceColumns,
		id, upd.Name, upd.Description, upd.Price,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	return s, nil
}

// DeleteService удаляет услугу. Заказы, ссылающиеся на неё, остаются.
func (r *PostgresRepository) DeleteService(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service %d: %w", id, model.ErrNotFound)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
