package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

func TestService_CreateLoan(t *testing.T) {
	ctx := context.Background()
	req := model.CreateLoanRequest{
		ReaderID: 1,
		BookID:   2,
		LoanDate: model.NewDate(2025, time.September, 1),
		DueDate:  model.NewDate(2025, time.September, 15),
	}

	// the direct path inserts without an availability check
	t.Run("ok", func(t *testing.T) {
		svc, repo := newTestService(t)
		loan := model.Loan{ID: 3, ReaderID: 1, BookID: 2, LoanDate: req.LoanDate, DueDate: req.DueDate}
		repo.EXPECT().InsertLoan(ctx, req).Return(loan, nil)

		got, err := svc.CreateLoan(ctx, req)
		require.NoError(t, err)
		require.Equal(t, loan, got)
	})

	t.Run("bad reference", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().InsertLoan(ctx, req).Return(model.Loan{}, errs.ErrNotFound)

		_, err := svc.CreateLoan(ctx, req)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_ReturnLoan(t *testing.T) {
	ctx := context.Background()
	returnDate := model.NewDate(2025, time.September, 20)

	t.Run("ok", func(t *testing.T) {
		svc, repo := newTestService(t)
		closed := model.Loan{ID: 3, ReaderID: 1, BookID: 2, ReturnDate: &returnDate}
		repo.EXPECT().ReturnLoan(ctx, 3, returnDate).Return(closed, nil)

		got, err := svc.ReturnLoan(ctx, 3, returnDate)
		require.NoError(t, err)
		require.NotNil(t, got.ReturnDate)
		require.Equal(t, returnDate, *got.ReturnDate)
	})

	t.Run("already returned", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().ReturnLoan(ctx, 3, returnDate).Return(model.Loan{}, errs.ErrAlreadyReturned)

		_, err := svc.ReturnLoan(ctx, 3, returnDate)
		require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	})

	t.Run("unknown loan", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().ReturnLoan(ctx, 99, returnDate).Return(model.Loan{}, errs.ErrNotFound)

		_, err := svc.ReturnLoan(ctx, 99, returnDate)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_ListOverdue(t *testing.T) {
	ctx := context.Background()
	asOf := model.NewDate(2025, time.October, 1)

	svc, repo := newTestService(t)
	overdue := []model.LoanDetail{
		{ID: 1, ReaderName: "Ivanova Olga", BookTitle: "Databases", DueDate: model.NewDate(2025, time.September, 5)},
		{ID: 2, ReaderName: "Petrov Alexey", BookTitle: "Logic", DueDate: model.NewDate(2025, time.September, 21)},
	}
	repo.EXPECT().QueryOverdueLoans(ctx, asOf).Return(overdue, nil)

	got, err := svc.ListOverdue(ctx, asOf)
	require.NoError(t, err)
	require.Equal(t, overdue, got)
}
