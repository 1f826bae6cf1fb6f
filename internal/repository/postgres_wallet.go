package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
)

const fundRequestColumns = `id, user_id, amount, status, created_at, updated_at`

func scanFundRequest(row pgx.Row) (*model.FundRequest, error) {
	var (
		fr     model.FundRequest
		status string
	)
	if err := row.Scan(&fr.ID, &fr.UserID, &fr.Amount, &status, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
		return nil, err
	}
	fr.Status = model.FundRequestStatus(status)
	return &fr, nil
}

// CreateFundRequest создаёт заявку на пополнение в статусе pending.
func (r *PostgresRepository) CreateFundRequest(ctx context.Context, userID int64, amount decimal.Decimal) (*model.FundRequest, error) {
	fr, err := scanFundRequest(r.pool.QueryRow(ctx,
		`INSERT INTO fund_requests (user_id, amount, status) VALUES ($1, $2, $3) RETURNING `+fundRequestColumns,
		userID, amount, string(model.FundRequestPending),
	))
	if err != nil {
		return nil, fmt.Errorf("create fund request: %w", err)
	}
	return fr, nil
}

// ListFundRequestsByUser возвращает заявки пользователя, новые первыми.
func (r *PostgresRepository) ListFundRequestsByUser(ctx context.Context, userID int64) ([]model.FundRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fundRequestColumns+` FROM fund_requests WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select fund requests: %w", err)
	}
	defer rows.Close()

	var res []model.FundRequest
	for rows.Next() {
		fr, err := scanFundRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fund request: %w", err)
		}
		res = append(res, *fr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListPendingFundRequests возвращает необработанные заявки с данными авторов, новые первыми.
func (r *PostgresRepository) ListPendingFundRequests(ctx context.Context) ([]model.FundRequestView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT f.id, f.user_id, f.amount, f.status, f.created_at, f.updated_at, u.name, u.email
		 FROM fund_requests f
		 LEFT JOIN users u ON u.id = f.user_id
		 WHERE f.status = $1
		 ORDER BY f.created_at DESC, f.id DESC`,
		string(model.FundRequestPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select pending fund requests: %w", err)
	}
	defer rows.Close()

	var res []model.FundRequestView
	for rows.Next() {
		var (
			v             model.FundRequestView
			status        string
			uName, uEmail *string
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.Amount, &status, &v.CreatedAt, &v.UpdatedAt, &uName, &uEmail); err != nil {
			return nil, fmt.Errorf("scan fund request: %w", err)
		}
		v.Status = model.FundRequestStatus(status)
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

// ApproveFundRequest переводит заявку из pending в approved и зачисляет сумму автору в одной транзакции.
// Второй результат сообщает, было ли зачисление: если автор удалён, заявка одобряется без зачисления.
func (r *PostgresRepository) ApproveFundRequest(ctx context.Context, id int64) (*model.FundRequest, bool, error) {
	var (
		fr       *model.FundRequest
		credited bool
	)
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		fr, err = resolveFundRequest(ctx, tx, id, model.FundRequestApproved)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users SET wallet_balance = wallet_balance + $2 WHERE id = $1`,
			fr.UserID, fr.Amount,
		)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}
		credited = tag.RowsAffected() == 1

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return fr, credited, nil
}

// RejectFundRequest переводит заявку из pending в rejected без изменения баланса.
func (r *PostgresRepository) RejectFundRequest(ctx context.Context, id int64) (*model.FundRequest, error) {
	return resolveFundRequest(ctx, r.pool, id, model.FundRequestRejected)
}

// resolveFundRequest выполняет единственный допустимый переход заявки из pending.
func resolveFundRequest(ctx context.Context, q querier, id int64, to model.FundRequestStatus) (*model.FundRequest, error) {
	fr, err := scanFundRequest(q.QueryRow(ctx,
		`UPDATE fund_requests SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING `+fundRequestColumns,
		id, string(to), string(model.FundRequestPending),
	))
	if err == nil {
		return fr, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update fund request: %w", err)
	}

	var status string
	err = q.QueryRow(ctx, `SELECT status FROM fund_requests WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fund request %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select fund request: %w", err)
	}
	return nil, fmt.Errorf("fund request %d is %s: %w", id, status, model.ErrAlreadyProcessed)
}
