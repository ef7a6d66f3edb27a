package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bibliotec/catalog-service/internal/events"
	"github.com/bibliotec/catalog-service/internal/model"
	"github.com/bibliotec/catalog-service/internal/repository"
)

type Service struct {
	log  *zap.Logger
	repo repository.Repository
	pub  events.Publisher
}

func NewService(repo repository.Repository, pub events.Publisher, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
		pub:  pub,
	}
}

func (s *Service) RegisterReader(ctx context.Context, req model.CreateReaderRequest) (model.Reader, error) {
	return s.repo.AddReader(ctx, req)
}

func (s *Service) ListReaders(ctx context.Context) ([]model.Reader, error) {
	return s.repo.ListReaders(ctx)
}

func (s *Service) DeleteReader(ctx context.Context, id int) error {
	return s.repo.DeleteReader(ctx, id)
}

func (s *Service) AddBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	return s.repo.AddBook(ctx, req)
}

func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

func (s *Service) SearchBooks(ctx context.Context, req model.SearchBooksRequest) ([]model.Book, error) {
	return s.repo.SearchBooks(ctx, req)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	return s.repo.DeleteBook(ctx, id)
}

func (s *Service) publish(e events.Event) {
	if err := s.pub.Publish(e); err != nil {
		s.log.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
