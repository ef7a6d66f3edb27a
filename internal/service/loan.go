package service

import (
	"context"

	"github.com/bibliotec/catalog-service/internal/events"
	"github.com/bibliotec/catalog-service/internal/model"
)

// CreateLoan is the direct-loan path: the librarian at the desk has the
// book in hand, so no availability check is made here. Only the order
// path gates on availability.
func (s *Service) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	loan, err := s.repo.InsertLoan(ctx, req)
	if err != nil {
		return model.Loan{}, err
	}

	e := events.New(events.LoanCreated)
	e.LoanID, e.ReaderID, e.BookID = loan.ID, loan.ReaderID, loan.BookID
	s.publish(e)

	return loan, nil
}

func (s *Service) ReturnLoan(ctx context.Context, loanID int, returnDate model.Date) (model.Loan, error) {
	loan, err := s.repo.ReturnLoan(ctx, loanID, returnDate)
	if err != nil {
		return model.Loan{}, err
	}

	e := events.New(events.LoanReturned)
	e.LoanID, e.ReaderID, e.BookID = loan.ID, loan.ReaderID, loan.BookID
	s.publish(e)

	return loan, nil
}

func (s *Service) ListLoans(ctx context.Context) ([]model.LoanDetail, error) {
	return s.repo.ListLoans(ctx)
}

// ListOverdue returns open loans due strictly before asOf, soonest first.
func (s *Service) ListOverdue(ctx context.Context, asOf model.Date) ([]model.LoanDetail, error) {
	return s.repo.QueryOverdueLoans(ctx, asOf)
}
