package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
)

const orderColumns = `id, user_id, service_id, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.ServiceID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// Checkout в одной транзакции находит услуги, списывает их суммарную стоимость и создаёт по заказу на каждую.
// Ненайденные услуги попадают в CheckoutResult.Dropped. При любой ошибке списание и заказы откатываются.
func (r *PostgresRepository) Checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error) {
	var res *model.CheckoutResult
	err := r.withRetry(ctx, func() error {
		var err error
		res, err = r.checkout(ctx, userID, serviceIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PostgresRepository) checkout(ctx context.Context, userID int64, serviceIDs []int64) (*model.CheckoutResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	prices := make(map[int64]decimal.Decimal, len(serviceIDs))
	rows, err := tx.Query(ctx, `SELECT id, price FROM services WHERE id = ANY($1)`, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	for rows.Next() {
		var (
			id    int64
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan service price: %w", err)
		}
		prices[id] = price
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	res := &model.CheckoutResult{Total: decimal.Zero}
	var resolved []int64
	for _, id := range serviceIDs {
		price, ok := prices[id]
		if !ok {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.Total = res.Total.Add(price)
		resolved = append(resolved, id)
	}

	if len(resolved) == 0 {
		if err := tx.QueryRow(ctx, `SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&res.NewBalance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("user %d: %w", userID, model.ErrNotFound)
			}
			return nil, fmt.Errorf("select balance: %w", err)
		}
		return res, tx.Commit(ctx)
	}

	res.NewBalance, err = tryDebit(ctx, tx, userID, res.Total)
	if err != nil {
		return nil, err
	}

	for _, serviceID := range resolved {
		o, err := scanOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (user_id, service_id, status) VALUES ($1, $2, $3) RETURNING `+orderColumns,
			userID, serviceID, string(model.OrderStatusPending),
		))
		if err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		res.Orders = append(res.Orders, *o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return res, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

const orderViewQuery = `SELECT o.id, o.user_id, o.service_id, o.status, o.created_at, o.updated_at,
        s.id, s.name, s.description, s.price, s.provider_id, s.image, s.created_at, s.updated_at,
        u.name, u.email
 FROM orders o
 LEFT JOIN services s ON s.id = o.service_id
 LEFT JOIN users u ON u.id = o.user_id`

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.OrderView, error) {
	return r.listOrderViews(ctx, orderViewQuery+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`, userID)
}

// ListOrders возвращает все заказы, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.OrderView, error) {
	return r.listOrderViews(ctx, orderViewQuery+` ORDER BY o.created_at DESC, o.id DESC`)
}

func (r *PostgresRepository) listOrderViews(ctx context.Context, query string, args ...any) ([]model.OrderView, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.OrderView
	for rows.Next() {
		var (
			v      model.OrderView
			status string

			sID                 *int64
			sName, sDescription *string
			sPrice              decimal.NullDecimal
			sProviderID         *int64
			sImage              *string
			sCreated, sUpdated  *time.Time

			uName, uEmail *string
		)
		err := rows.Scan(&v.ID, &v.UserID, &v.ServiceID, &status, &v.CreatedAt, &v.UpdatedAt,
			&sID, &sName, &sDescription, &sPrice, &sProviderID, &sImage, &sCreated, &sUpdated,
			&uName, &uEmail)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		v.Status = model.OrderStatus(status)

		if sID != nil {
			v.Service = &model.Service{
				ID:          *sID,
				Name:        deref(sName),
				Description: deref(sDescription),
				Price:       sPrice.Decimal,
				ProviderID:  *sProviderID,
				Image:       deref(sImage),
				CreatedAt:   *sCreated,
				UpdatedAt:   *sUpdated,
			}
		}
		if uName != nil {
			v.User = &model.UserRef{ID: v.UserID, Name: *uName, Email: deref(uEmail)}
		}

		res = append(res, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateOrderStatus меняет статус заказа, только если текущий статус равен from.
// Если статус успели изменить, возвращается model.ErrInvalidTransition.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+orderColumns,
		id, string(from), string(to),
	))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if _, err := r.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("order %d changed concurrently: %w", id, model.ErrInvalidTransition)
}

// DeleteOrder удаляет заказ.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, model.ErrNotFound)
	}
	return nil
}
