package service

import (
	"context"

	"github.com/bibliotec/catalog-service/internal/model"
)

// Available computes the remaining loanable copies of a book:
// total copies minus open loans minus pending orders. The result is
// recomputed from fresh reads on every call and never cached; a
// non-positive value means the book cannot be reserved. The reservation
// write path recomputes the same figure inside its own transaction.
func (s *Service) Available(ctx context.Context, bookID int) (int, error) {
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	openLoans, err := s.repo.CountOpenLoans(ctx, bookID)
	if err != nil {
		return 0, err
	}
	pendingOrders, err := s.repo.CountPendingOrders(ctx, bookID)
	if err != nil {
		return 0, err
	}
	return book.TotalCopies - openLoans - pendingOrders, nil
}

func (s *Service) Availability(ctx context.Context, bookID int) (model.AvailabilityResponse, error) {
	available, err := s.Available(ctx, bookID)
	if err != nil {
		return model.AvailabilityResponse{}, err
	}
	return model.AvailabilityResponse{BookID: bookID, Available: available}, nil
}
