package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/bibliotec/catalog-service/internal/model"
)

func (s *Service) PopularBooks(ctx context.Context) ([]model.PopularBook, error) {
	return s.repo.QueryPopularity(ctx)
}

// ReportSummary fetches the overdue list and the popularity ranking in
// parallel.
func (s *Service) ReportSummary(ctx context.Context, asOf model.Date) (model.ReportSummary, error) {
	var summary model.ReportSummary

	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		overdue, err := s.repo.QueryOverdueLoans(ctx, asOf)
		if err != nil {
			return err
		}
		summary.Overdue = overdue
		return nil
	})
	gg.Go(func() error {
		popular, err := s.repo.QueryPopularity(ctx)
		if err != nil {
			return err
		}
		summary.Popular = popular
		return nil
	})
	if err := gg.Wait(); err != nil {
		return model.ReportSummary{}, err
	}
	return summary, nil
}
