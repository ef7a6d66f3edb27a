package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

const orderColumns = "id, reader_id, book_id, order_date, status, confirmation_code"

// CreateOrder reserves a copy: the availability read and the order insert
// run in one transaction, serialized per book by the row lock on books.
// Two concurrent reservations of the last copy cannot both succeed.
func (r *repository) CreateOrder(ctx context.Context, req model.CreateOrderRequest, code string) (model.Order, error) {
	var order model.Order
	err := r.withConflictRetry(ctx, func(tx *sqlx.Tx) error {
		var totalCopies int
		err := tx.GetContext(ctx, &totalCopies,
			`select total_copies from books where id = $1 for update`, req.BookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}

		openLoans, err := countOpenLoansTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		pendingOrders, err := countPendingOrdersTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		if totalCopies-openLoans-pendingOrders <= 0 {
			return errs.ErrUnavailable
		}

		query, args, err := qb.Insert(ordersTableName).
			Columns("reader_id", "book_id", "order_date", "status", "confirmation_code").
			Values(req.ReaderID, req.BookID, req.OrderDate, model.OrderStatusPending, code).
			Suffix("returning " + orderColumns).
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &order, query, args...); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrCodeTaken
			}
			r.log.Error("CreateOrder", zap.String("q", query), zap.Any("args", args))
			return err
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// GetPendingOrderByCode resolves a confirmation code to its pending order.
// An issued or unknown code is indistinguishable to the caller: both are
// not found.
func (r *repository) GetPendingOrderByCode(ctx context.Context, code string) (model.Order, error) {
	query, args, err := qb.Select("id", "reader_id", "book_id", "order_date", "status", "confirmation_code").
		From(ordersTableName).
		Where(sq.Eq{"confirmation_code": code, "status": model.OrderStatusPending}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Order{}, err
	}
	var order model.Order
	if err := r.db.GetContext(ctx, &order, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, errs.ErrNotFound
		}
		return model.Order{}, err
	}
	return order, nil
}

// IssueOrder converts a pending order into a loan: the loan insert and the
// status flip commit together, and the row lock on the order makes the
// transition happen exactly once.
func (r *repository) IssueOrder(ctx context.Context, orderID int, loanDate, dueDate model.Date) (model.Loan, error) {
	var loan model.Loan
	err := r.withConflictRetry(ctx, func(tx *sqlx.Tx) error {
		var order model.Order
		err := tx.GetContext(ctx, &order,
			`select `+orderColumns+` from orders where id = $1 for update`, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if order.Status != model.OrderStatusPending {
			return errs.ErrAlreadyIssued
		}

		query, args, err := qb.Insert(loansTableName).
			Columns("reader_id", "book_id", "loan_date", "due_date").
			Values(order.ReaderID, order.BookID, loanDate, dueDate).
			Suffix("returning *").
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
			r.log.Error("IssueOrder", zap.String("q", query), zap.Any("args", args))
			return err
		}

		_, err = tx.ExecContext(ctx,
			`update orders set status = $2 where id = $1`, orderID, model.OrderStatusIssued)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ListOrders(ctx context.Context) ([]model.OrderDetail, error) {
	query, args, err := qb.Select("o.id", "r.full_name as reader_name", "b.title as book_title",
		"o.order_date", "o.status", "o.confirmation_code").
		From(ordersTableName+" o").
		Join(readersTableName+" r on o.reader_id = r.id").
		Join(booksTableName+" b on o.book_id = b.id").
		OrderBy("o.order_date desc", "o.id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var orders []model.OrderDetail
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) CountOpenLoans(ctx context.Context, bookID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`select count(*) from loans where book_id = $1 and return_date is null`, bookID)
	return count, err
}

func (r *repository) CountPendingOrders(ctx context.Context, bookID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`select count(*) from orders where book_id = $1 and status = 'PENDING'`, bookID)
	return count, err
}

func countOpenLoansTx(ctx context.Context, tx *sqlx.Tx, bookID int) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`select count(*) from loans where book_id = $1 and return_date is null`, bookID)
	return count, err
}

func countPendingOrdersTx(ctx context.Context, tx *sqlx.Tx, bookID int) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`select count(*) from orders where book_id = $1 and status = 'PENDING'`, bookID)
	return count, err
}
