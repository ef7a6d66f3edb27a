package repository

import (
	"context"

	"github.com/bibliotec/catalog-service/internal/model"
)

func (r *repository) QueryOverdueLoans(ctx context.Context, asOf model.Date) ([]model.LoanDetail, error) {
	query, args, err := qb.Select("l.id", "r.full_name as reader_name", "b.title as book_title",
		"l.loan_date", "l.due_date", "l.return_date").
		From(loansTableName+" l").
		Join(readersTableName+" r on l.reader_id = r.id").
		Join(booksTableName+" b on l.book_id = b.id").
		Where("l.return_date is null").
		Where("l.due_date < ?", asOf).
		OrderBy("l.due_date").
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

// QueryPopularity ranks every book by times loaned, zero-loan books
// included, ties broken by title.
func (r *repository) QueryPopularity(ctx context.Context) ([]model.PopularBook, error) {
	query, args, err := qb.Select("b.title", "b.author", "count(l.id) as loan_count").
		From(booksTableName + " b").
		LeftJoin(loansTableName + " l on l.book_id = b.id").
		GroupBy("b.id").
		OrderBy("loan_count desc", "b.title").
		ToSql()
	if err != nil {
		return nil, err
	}
	var books []model.PopularBook
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}
