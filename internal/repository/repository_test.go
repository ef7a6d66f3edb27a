package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
	"github.com/bibliotec/catalog-service/internal/repository"
	"github.com/bibliotec/catalog-service/migrations"
	"github.com/bibliotec/catalog-service/pkg/postgres"
)

// setupRepository connects to the database DB_* points at, applies the
// embedded migrations and truncates every table. Skipped when DB_HOST is
// not set.
func setupRepository(t *testing.T) (context.Context, *sqlx.DB, repository.Repository) {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	var cfg postgres.Config
	require.NoError(t, envconfig.Process("", &cfg))
	db, err := postgres.NewPostgresDB(ctx, &cfg, migrations.MigrationFiles)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `truncate loans, orders, readers, books restart identity cascade`)
	require.NoError(t, err)

	repo, err := repository.NewRepository(db, zap.NewExample().Named("test"))
	require.NoError(t, err)
	return ctx, db, repo
}

func seedReader(ctx context.Context, t *testing.T, repo repository.Repository, name string) model.Reader {
	t.Helper()
	reader, err := repo.AddReader(ctx, model.CreateReaderRequest{
		FullName:  name,
		BirthDate: model.NewDate(1990, time.March, 12),
		Phone:     "555-0101",
		Category:  model.CategoryStudent,
	})
	require.NoError(t, err)
	return reader
}

func seedBook(ctx context.Context, t *testing.T, repo repository.Repository, title string, copies int) model.Book {
	t.Helper()
	book, err := repo.AddBook(ctx, model.CreateBookRequest{
		Title:       title,
		Author:      "Author A.",
		Publisher:   "Pub",
		Year:        2001,
		Keywords:    "test",
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return book
}

func countRows(ctx context.Context, t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(ctx, &n, `select count(*) from `+table))
	return n
}

func TestRepository_CreateOrder(t *testing.T) {
	orderDate := model.NewDate(2025, time.September, 1)

	t.Run("ok", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")
		book := seedBook(ctx, t, repo, "Databases", 2)

		order, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    book.ID,
			OrderDate: orderDate,
		}, "111111")
		require.NoError(t, err)
		require.Equal(t, model.OrderStatusPending, order.Status)
		require.Equal(t, "111111", order.ConfirmationCode)
		require.Equal(t, 1, countRows(ctx, t, db, "orders"))
	})

	t.Run("no copies left, no row inserted", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")
		book := seedBook(ctx, t, repo, "Databases", 1)
		_, err := repo.InsertLoan(ctx, model.CreateLoanRequest{
			ReaderID: reader.ID,
			BookID:   book.ID,
			LoanDate: orderDate,
			DueDate:  model.NewDate(2025, time.September, 15),
		})
		require.NoError(t, err)

		_, err = repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    book.ID,
			OrderDate: orderDate,
		}, "111111")
		require.ErrorIs(t, err, errs.ErrUnavailable)
		require.Equal(t, 0, countRows(ctx, t, db, "orders"))
	})

	t.Run("last copy held by pending order", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		first := seedReader(ctx, t, repo, "Ivanova Olga")
		second := seedReader(ctx, t, repo, "Petrov Alexey")
		book := seedBook(ctx, t, repo, "Databases", 1)

		_, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  first.ID,
			BookID:    book.ID,
			OrderDate: orderDate,
		}, "111111")
		require.NoError(t, err)

		_, err = repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  second.ID,
			BookID:    book.ID,
			OrderDate: orderDate,
		}, "222222")
		require.ErrorIs(t, err, errs.ErrUnavailable)
		require.Equal(t, 1, countRows(ctx, t, db, "orders"))
	})

	t.Run("duplicate pending code", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")
		first := seedBook(ctx, t, repo, "Databases", 1)
		second := seedBook(ctx, t, repo, "Logic", 1)

		_, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    first.ID,
			OrderDate: orderDate,
		}, "111111")
		require.NoError(t, err)

		_, err = repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    second.ID,
			OrderDate: orderDate,
		}, "111111")
		require.ErrorIs(t, err, errs.ErrCodeTaken)
		require.Equal(t, 1, countRows(ctx, t, db, "orders"))
	})

	t.Run("unknown book", func(t *testing.T) {
		ctx, _, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")

		_, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    999,
			OrderDate: orderDate,
		}, "111111")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

// TestRepository_CreateOrder_ConcurrentLastCopy races two reservations of
// the last copy: the row lock on the book serializes them, so exactly one
// wins and exactly one order row exists afterwards.
func TestRepository_CreateOrder_ConcurrentLastCopy(t *testing.T) {
	ctx, db, repo := setupRepository(t)
	readers := []model.Reader{
		seedReader(ctx, t, repo, "Ivanova Olga"),
		seedReader(ctx, t, repo, "Petrov Alexey"),
	}
	book := seedBook(ctx, t, repo, "Databases", 1)
	orderDate := model.NewDate(2025, time.September, 1)
	codes := []string{"111111", "222222"}

	results := make(chan error, len(readers))
	var wg sync.WaitGroup
	for i := range readers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
				ReaderID:  readers[i].ID,
				BookID:    book.ID,
				OrderDate: orderDate,
			}, codes[i])
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, errs.ErrUnavailable)
		lost++
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)
	require.Equal(t, 1, countRows(ctx, t, db, "orders"))
}

func TestRepository_IssueOrder(t *testing.T) {
	loanDate := model.NewDate(2025, time.September, 2)
	dueDate := model.NewDate(2025, time.September, 16)

	t.Run("ok", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")
		book := seedBook(ctx, t, repo, "Databases", 1)
		order, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    book.ID,
			OrderDate: model.NewDate(2025, time.September, 1),
		}, "111111")
		require.NoError(t, err)

		loan, err := repo.IssueOrder(ctx, order.ID, loanDate, dueDate)
		require.NoError(t, err)
		require.Equal(t, reader.ID, loan.ReaderID)
		require.Equal(t, book.ID, loan.BookID)
		require.Equal(t, 1, countRows(ctx, t, db, "loans"))

		// the code no longer resolves once issued
		_, err = repo.GetPendingOrderByCode(ctx, "111111")
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("second issue creates no second loan", func(t *testing.T) {
		ctx, db, repo := setupRepository(t)
		reader := seedReader(ctx, t, repo, "Ivanova Olga")
		book := seedBook(ctx, t, repo, "Databases", 1)
		order, err := repo.CreateOrder(ctx, model.CreateOrderRequest{
			ReaderID:  reader.ID,
			BookID:    book.ID,
			OrderDate: model.NewDate(2025, time.September, 1),
		}, "111111")
		require.NoError(t, err)

		_, err = repo.IssueOrder(ctx, order.ID, loanDate, dueDate)
		require.NoError(t, err)

		_, err = repo.IssueOrder(ctx, order.ID, loanDate, dueDate)
		require.ErrorIs(t, err, errs.ErrAlreadyIssued)
		require.Equal(t, 1, countRows(ctx, t, db, "loans"))
	})

	t.Run("unknown order", func(t *testing.T) {
		ctx, _, repo := setupRepository(t)

		_, err := repo.IssueOrder(ctx, 999, loanDate, dueDate)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestRepository_ReturnLoan(t *testing.T) {
	ctx, _, repo := setupRepository(t)
	reader := seedReader(ctx, t, repo, "Ivanova Olga")
	book := seedBook(ctx, t, repo, "Databases", 1)
	loan, err := repo.InsertLoan(ctx, model.CreateLoanRequest{
		ReaderID: reader.ID,
		BookID:   book.ID,
		LoanDate: model.NewDate(2025, time.September, 1),
		DueDate:  model.NewDate(2025, time.September, 15),
	})
	require.NoError(t, err)

	first := model.NewDate(2025, time.September, 10)
	closed, err := repo.ReturnLoan(ctx, loan.ID, first)
	require.NoError(t, err)
	require.NotNil(t, closed.ReturnDate)
	require.Equal(t, first, *closed.ReturnDate)

	// a second return leaves the original return date in place
	_, err = repo.ReturnLoan(ctx, loan.ID, model.NewDate(2025, time.September, 20))
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	kept, err := repo.ListLoans(ctx)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.NotNil(t, kept[0].ReturnDate)
	require.Equal(t, first, *kept[0].ReturnDate)

	_, err = repo.ReturnLoan(ctx, 999, first)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRepository_DeleteReferenced(t *testing.T) {
	ctx, _, repo := setupRepository(t)
	reader := seedReader(ctx, t, repo, "Ivanova Olga")
	book := seedBook(ctx, t, repo, "Databases", 1)
	_, err := repo.InsertLoan(ctx, model.CreateLoanRequest{
		ReaderID: reader.ID,
		BookID:   book.ID,
		LoanDate: model.NewDate(2025, time.September, 1),
		DueDate:  model.NewDate(2025, time.September, 15),
	})
	require.NoError(t, err)

	require.ErrorIs(t, repo.DeleteBook(ctx, book.ID), errs.ErrInUse)
	require.ErrorIs(t, repo.DeleteReader(ctx, reader.ID), errs.ErrInUse)

	_, err = repo.GetBook(ctx, book.ID)
	require.NoError(t, err)
	_, err = repo.GetReader(ctx, reader.ID)
	require.NoError(t, err)
}
