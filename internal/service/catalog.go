package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

// CatalogService serves the read-only book and author catalog.
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListBooks(ctx context.Context, limit, offset int) ([]model.Book, error) {
	books, err := s.repo.ListBooks(ctx, page(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing books: %w", err)
	}
	return books, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id string) (*model.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "book id is required")
	}
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}
	return book, nil
}

func (s *CatalogService) ListAuthors(ctx context.Context, limit, offset int) ([]model.Author, error) {
	authors, err := s.repo.ListAuthors(ctx, page(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing authors: %w", err)
	}
	return authors, nil
}

func (s *CatalogService) GetAuthor(ctx context.Context, id string) (*model.Author, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "author id is required")
	}
	author, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}
	return author, nil
}
