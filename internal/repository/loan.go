package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

// InsertLoan is the librarian direct-loan path. It does not check
// availability; the order path is the only one that does.
func (r *repository) InsertLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("reader_id", "book_id", "loan_date", "due_date").
		Values(req.ReaderID, req.BookID, req.LoanDate, req.DueDate).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return model.Loan{}, errs.ErrNotFound
		}
		r.log.Error("InsertLoan", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, err
	}
	return loan, nil
}

// ReturnLoan closes an open loan. A loan already closed keeps its original
// return date.
func (r *repository) ReturnLoan(ctx context.Context, loanID int, returnDate model.Date) (model.Loan, error) {
	var loan model.Loan
	err := r.db.GetContext(ctx, &loan, `
update loans set return_date = $2
where id = $1 and return_date is null
returning *`, loanID, returnDate)
	if err == nil {
		return loan, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Loan{}, err
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`select exists(select 1 from loans where id = $1)`, loanID); err != nil {
		return model.Loan{}, err
	}
	if exists {
		return model.Loan{}, errs.ErrAlreadyReturned
	}
	return model.Loan{}, errs.ErrNotFound
}

func (r *repository) ListLoans(ctx context.Context) ([]model.LoanDetail, error) {
	query, args, err := qb.Select("l.id", "r.full_name as reader_name", "b.title as book_title",
		"l.loan_date", "l.due_date", "l.return_date").
		From(loansTableName+" l").
		Join(readersTableName+" r on l.reader_id = r.id").
		Join(booksTableName+" b on l.book_id = b.id").
		OrderBy("l.loan_date desc", "l.id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var loans []model.LoanDetail
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}
