package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

func TestService_PopularBooks(t *testing.T) {
	ctx := context.Background()

	svc, repo := newTestService(t)
	popular := []model.PopularBook{
		{Title: "Databases", Author: "Date C.J.", LoanCount: 7},
		{Title: "Algorithms", Author: "Cormen T.", LoanCount: 3},
	}
	repo.EXPECT().QueryPopularity(ctx).Return(popular, nil)

	got, err := svc.PopularBooks(ctx)
	require.NoError(t, err)
	require.Equal(t, popular, got)
}

func TestService_ReportSummary(t *testing.T) {
	ctx := context.Background()
	asOf := model.NewDate(2025, time.October, 1)

	overdue := []model.LoanDetail{
		{ID: 1, ReaderName: "Ivanova Olga", BookTitle: "Databases", DueDate: model.NewDate(2025, time.September, 5)},
	}
	popular := []model.PopularBook{
		{Title: "Databases", Author: "Date C.J.", LoanCount: 7},
	}

	t.Run("ok", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().QueryOverdueLoans(gomock.Any(), asOf).Return(overdue, nil)
		repo.EXPECT().QueryPopularity(gomock.Any()).Return(popular, nil)

		got, err := svc.ReportSummary(ctx, asOf)
		require.NoError(t, err)
		require.Equal(t, model.ReportSummary{Overdue: overdue, Popular: popular}, got)
	})

	t.Run("overdue query fails", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().QueryOverdueLoans(gomock.Any(), asOf).Return(nil, errs.ErrConflict)
		repo.EXPECT().QueryPopularity(gomock.Any()).Return(popular, nil).AnyTimes()

		_, err := svc.ReportSummary(ctx, asOf)
		require.ErrorIs(t, err, errs.ErrConflict)
	})
}
