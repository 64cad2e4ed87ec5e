package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

// DefaultLoanPeriod applies when no due date is given.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// BookGetter is the slice of the catalog LoanService needs.
type BookGetter interface {
	GetBook(ctx context.Context, id string) (*model.Book, error)
}

// LoanService lends and takes back books for the authenticated user.
//
// OWNERSHIP:
// Every method takes the caller's user ID (the token subject). A user only
// ever sees and returns their own loans.
type LoanService struct {
	loans  repository.LoanRepository
	books  BookGetter
	period time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// LoanOption customises a LoanService.
type LoanOption func(*LoanService)

// WithLoanClock replaces time.Now. Used by tests.
func WithLoanClock(now func() time.Time) LoanOption {
	return func(s *LoanService) { s.now = now }
}

// NewLoanService creates a LoanService. A non-positive period means
// DefaultLoanPeriod.
func NewLoanService(
	loans repository.LoanRepository,
	books BookGetter,
	period time.Duration,
	logger *slog.Logger,
	opts ...LoanOption,
) *LoanService {
	if period <= 0 {
		period = DefaultLoanPeriod
	}
	s := &LoanService{
		loans:  loans,
		books:  books,
		period: period,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Borrow lends bookID to userID.
//
// RULES:
//   - the book must exist (404)
//   - dueDate, when given, must be after the borrow time (400)
//   - the book must not already be on loan (409, enforced by the store)
func (s *LoanService) Borrow(ctx context.Context, userID, bookID string, dueDate *time.Time) (*model.Loan, error) {
	if bookID == "" {
		return nil, apperror.ValidationFailed("bookId", "bookId is required")
	}

	if _, err := s.books.GetBook(ctx, bookID); err != nil {
		return nil, fmt.Errorf("service/loan: %w", err)
	}

	now := s.now().UTC()
	due := now.Add(s.period)
	if dueDate != nil {
		if !dueDate.After(now) {
			return nil, apperror.ValidationFailed("dueDate", "dueDate must be after the borrow time")
		}
		due = dueDate.UTC()
	}

	loan := &model.Loan{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: now,
		DueDate:    &due,
	}
	if err := s.loans.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("service/loan: %w", err)
	}

	s.logger.Info("book borrowed",
		slog.String("loanID", loan.ID),
		slog.String("userID", userID),
		slog.String("bookID", bookID),
	)
	return loan, nil
}

// Return closes one of the caller's active loans.
func (s *LoanService) Return(ctx context.Context, userID, loanID string) (*model.Loan, error) {
	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("service/loan: %w", err)
	}
	if loan.UserID != userID {
		return nil, apperror.Forbidden("loan belongs to another user")
	}
	if loan.IsReturned {
		return nil, apperror.ConflictMessage("loan already returned")
	}

	returned, err := s.loans.MarkReturned(ctx, loanID, s.now())
	if err != nil {
		return nil, fmt.Errorf("service/loan: %w", err)
	}

	s.logger.Info("book returned",
		slog.String("loanID", loanID),
		slog.String("userID", userID),
	)
	return returned, nil
}

// ListForUser returns the caller's loans, newest first.
func (s *LoanService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Loan, error) {
	loans, err := s.loans.ListLoansByUser(ctx, userID, page(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/loan: listing loans: %w", err)
	}
	return loans, nil
}
