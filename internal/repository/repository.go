package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

// Repository is the catalog store: the sole owner of durable state and
// the concurrency boundary for every compound write.
type Repository interface {
	GetReader(ctx context.Context, id int) (model.Reader, error)
	ListReaders(ctx context.Context) ([]model.Reader, error)
	AddReader(ctx context.Context, req model.CreateReaderRequest) (model.Reader, error)
	DeleteReader(ctx context.Context, id int) error

	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, req model.SearchBooksRequest) ([]model.Book, error)
	AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error

	CountOpenLoans(ctx context.Context, bookID int) (int, error)
	CountPendingOrders(ctx context.Context, bookID int) (int, error)

	CreateOrder(ctx context.Context, req model.CreateOrderRequest, code string) (model.Order, error)
	GetPendingOrderByCode(ctx context.Context, code string) (model.Order, error)
	IssueOrder(ctx context.Context, orderID int, loanDate, dueDate model.Date) (model.Loan, error)
	ListOrders(ctx context.Context) ([]model.OrderDetail, error)

	InsertLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int, returnDate model.Date) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.LoanDetail, error)

	QueryOverdueLoans(ctx context.Context, asOf model.Date) ([]model.LoanDetail, error)
	QueryPopularity(ctx context.Context) ([]model.PopularBook, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	readersTableName = `readers`
	booksTableName   = `books`
	loansTableName   = `loans`
	ordersTableName  = `orders`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const maxTxAttempts = 3

func (r *repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Warn("tx rollback", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}

// withConflictRetry reruns the transaction a bounded number of times when
// postgres aborts it with a serialization failure or a deadlock.
func (r *repository) withConflictRetry(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err = r.withTx(ctx, fn); !isRetryable(err) {
			return err
		}
		r.log.Debug("tx conflict, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return errors.Wrap(errs.ErrConflict, err.Error())
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

func (r *repository) GetReader(ctx context.Context, id int) (model.Reader, error) {
	query, args, err := qb.Select("id", "full_name", "birth_date", "phone", "category").
		From(readersTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Reader{}, err
	}
	var reader model.Reader
	if err := r.db.GetContext(ctx, &reader, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reader{}, errs.ErrNotFound
		}
		return model.Reader{}, err
	}
	return reader, nil
}

func (r *repository) ListReaders(ctx context.Context) ([]model.Reader, error) {
	query, args, err := qb.Select("id", "full_name", "birth_date", "phone", "category").
		From(readersTableName).
		OrderBy("full_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var readers []model.Reader
	if err := r.db.SelectContext(ctx, &readers, query, args...); err != nil {
		return nil, err
	}
	return readers, nil
}

func (r *repository) AddReader(ctx context.Context, req model.CreateReaderRequest) (model.Reader, error) {
	query, args, err := qb.Insert(readersTableName).
		Columns("full_name", "birth_date", "phone", "category").
		Values(req.FullName, req.BirthDate, req.Phone, req.Category).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Reader{}, err
	}
	var reader model.Reader
	if err := r.db.GetContext(ctx, &reader, query, args...); err != nil {
		r.log.Error("AddReader", zap.String("q", query), zap.Any("args", args))
		return model.Reader{}, err
	}
	return reader, nil
}

func (r *repository) DeleteReader(ctx context.Context, id int) error {
	return r.deleteByID(ctx, readersTableName, id)
}

func (r *repository) GetBook(ctx context.Context, id int) (model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "publisher", "year", "keywords", "total_copies").
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context) ([]model.Book, error) {
	return r.selectBooks(ctx, qb.Select("id", "title", "author", "publisher", "year", "keywords", "total_copies").
		From(booksTableName).
		OrderBy("title"))
}

func (r *repository) SearchBooks(ctx context.Context, req model.SearchBooksRequest) ([]model.Book, error) {
	q := qb.Select("id", "title", "author", "publisher", "year", "keywords", "total_copies").
		From(booksTableName).
		OrderBy("title")
	if req.Title != "" {
		q = q.Where(sq.ILike{"title": fmt.Sprintf("%%%s%%", req.Title)})
	}
	if req.Author != "" {
		q = q.Where(sq.ILike{"author": fmt.Sprintf("%%%s%%", req.Author)})
	}
	if req.Keywords != "" {
		q = q.Where(sq.ILike{"keywords": fmt.Sprintf("%%%s%%", req.Keywords)})
	}
	return r.selectBooks(ctx, q)
}

func (r *repository) selectBooks(ctx context.Context, q sq.SelectBuilder) ([]model.Book, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "publisher", "year", "keywords", "total_copies").
		Values(req.Title, req.Author, req.Publisher, req.Year, req.Keywords, req.TotalCopies).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		r.log.Error("AddBook", zap.String("q", query), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	return r.deleteByID(ctx, booksTableName, id)
}

func (r *repository) deleteByID(ctx context.Context, table string, id int) error {
	query, args, err := qb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errs.ErrInUse
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
