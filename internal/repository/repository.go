// Package repository declares the storage interfaces the services depend on.
//
// Two implementations live in sub-packages: sqlite (embedded, default) and
// postgres. Both enforce the same invariants in their schemas:
//   - users.email is UNIQUE; a duplicate insert returns apperror.ErrConflict
//   - a book has at most one loan with returned_at IS NULL; a second active
//     loan returns apperror.ErrConflict
//
// Lookups that find nothing return apperror.ErrNotFound.
package repository

import (
	"context"
	"time"

	"github.com/sakif/library-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Create inserts u in one statement (hash included) and fills u.ID and
	// u.CreatedAt.
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type CatalogRepository interface {
	ListBooks(ctx context.Context, opts ListOptions) ([]model.Book, error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	ListAuthors(ctx context.Context, opts ListOptions) ([]model.Author, error)
	GetAuthor(ctx context.Context, id string) (*model.Author, error)
}

type LoanRepository interface {
	// CreateLoan fills l.ID and l.UpdatedAt.
	CreateLoan(ctx context.Context, l *model.Loan) error
	GetLoan(ctx context.Context, id string) (*model.Loan, error)
	// ListLoansByUser returns newest first.
	ListLoansByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Loan, error)
	// MarkReturned sets returned_at on an active loan. Returns
	// apperror.ErrConflict if the loan was already returned.
	MarkReturned(ctx context.Context, id string, at time.Time) (*model.Loan, error)
}

// Store groups the repositories of one database.
type Store interface {
	Users() UserRepository
	Catalog() CatalogRepository
	Loans() LoanRepository
	Ping(ctx context.Context) error
	Close() error
}
