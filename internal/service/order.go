package service

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/errs"
	"github.com/bibliotec/catalog-service/internal/events"
	"github.com/bibliotec/catalog-service/internal/model"
)

// codeAttempts bounds regeneration when a generated confirmation code
// collides with another pending order.
const codeAttempts = 3

func generateConfirmationCode() string {
	return strconv.Itoa(rand.IntN(900000) + 100000)
}

// CreateOrder reserves a copy of a book for a reader and hands back the
// confirmation code the reader presents at the desk. The availability
// check and the order insert are atomic in the store.
func (s *Service) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.CreateOrderResponse, error) {
	if _, err := s.repo.GetReader(ctx, req.ReaderID); err != nil {
		return model.CreateOrderResponse{}, errors.Wrap(err, "reader")
	}
	if _, err := s.repo.GetBook(ctx, req.BookID); err != nil {
		return model.CreateOrderResponse{}, errors.Wrap(err, "book")
	}

	var (
		order model.Order
		err   error
	)
	for attempt := 0; attempt < codeAttempts; attempt++ {
		order, err = s.repo.CreateOrder(ctx, req, generateConfirmationCode())
		if !errors.Is(err, errs.ErrCodeTaken) {
			break
		}
		s.log.Debug("confirmation code collision", zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return model.CreateOrderResponse{}, err
	}

	e := events.New(events.OrderCreated)
	e.OrderID, e.ReaderID, e.BookID = order.ID, order.ReaderID, order.BookID
	s.publish(e)

	return model.CreateOrderResponse{
		OrderID:          order.ID,
		ConfirmationCode: order.ConfirmationCode,
	}, nil
}

// LookupPendingOrderByCode returns the pending order a confirmation code
// identifies. Issued and unknown codes both come back not found.
func (s *Service) LookupPendingOrderByCode(ctx context.Context, code string) (model.Order, error) {
	return s.repo.GetPendingOrderByCode(ctx, code)
}

// IssueOrder converts a pending order into a loan with the given dates.
// The transition is exactly-once: a second issue of the same order fails
// and creates no second loan.
func (s *Service) IssueOrder(ctx context.Context, orderID int, req model.IssueOrderRequest) (model.Loan, error) {
	loan, err := s.repo.IssueOrder(ctx, orderID, req.LoanDate, req.DueDate)
	if err != nil {
		return model.Loan{}, err
	}

	e := events.New(events.OrderIssued)
	e.OrderID, e.LoanID, e.ReaderID, e.BookID = orderID, loan.ID, loan.ReaderID, loan.BookID
	s.publish(e)

	return loan, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]model.OrderDetail, error) {
	return s.repo.ListOrders(ctx)
}
