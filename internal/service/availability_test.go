package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/model"
)

func TestService_Available(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		totalCopies   int
		openLoans     int
		pendingOrders int
		want          int
	}{
		{"all copies free", 4, 0, 0, 4},
		{"loans and orders subtract", 4, 2, 1, 1},
		{"exactly none left", 3, 2, 1, 0},
		{"over-committed store reports negative", 1, 2, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			repo.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, TotalCopies: tt.totalCopies}, nil)
			repo.EXPECT().CountOpenLoans(ctx, 1).Return(tt.openLoans, nil)
			repo.EXPECT().CountPendingOrders(ctx, 1).Return(tt.pendingOrders, nil)

			got, err := svc.Available(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown book", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().GetBook(ctx, 42).Return(model.Book{}, errs.ErrNotFound)

		_, err := svc.Available(ctx, 42)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}
