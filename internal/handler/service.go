package handler

import (
	"context"

	"github.com/bibliotec/catalog-service/internal/model"
	"github.com/bibliotec/catalog-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	RegisterReader(ctx context.Context, req model.CreateReaderRequest) (model.Reader, error)
	ListReaders(ctx context.Context) ([]model.Reader, error)
	DeleteReader(ctx context.Context, id int) error

	AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	SearchBooks(ctx context.Context, req model.SearchBooksRequest) ([]model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	Availability(ctx context.Context, bookID int) (model.AvailabilityResponse, error)

	CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.CreateOrderResponse, error)
	LookupPendingOrderByCode(ctx context.Context, code string) (model.Order, error)
	IssueOrder(ctx context.Context, orderID int, req model.IssueOrderRequest) (model.Loan, error)
	ListOrders(ctx context.Context) ([]model.OrderDetail, error)

	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int, returnDate model.Date) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.LoanDetail, error)
	ListOverdue(ctx context.Context, asOf model.Date) ([]model.LoanDetail, error)

	PopularBooks(ctx context.Context) ([]model.PopularBook, error)
	ReportSummary(ctx context.Context, asOf model.Date) (model.ReportSummary, error)
}

var _ CatalogService = (*service.Service)(nil)
