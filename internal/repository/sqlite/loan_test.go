package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

func newTestLoan(userID, bookID string, borrowed time.Time) *model.Loan {
	due := borrowed.Add(14 * 24 * time.Hour)
	return &model.Loan{UserID: userID, BookID: bookID, BorrowedAt: borrowed, DueDate: &due}
}

func TestCreateLoan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "reader@example.com")

	loan := newTestLoan(user.ID, "book-1984", time.Now())
	if err := db.Loans().CreateLoan(ctx, loan); err != nil {
		t.Fatalf("CreateLoan() error = %v", err)
	}
	if loan.ID == "" {
		t.Fatal("CreateLoan() did not set ID")
	}

	got, err := db.Loans().GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetLoan() error = %v", err)
	}
	if got.IsReturned || got.ReturnedAt != nil {
		t.Errorf("new loan should be active: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(loan.DueDate.UTC()) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, loan.DueDate)
	}
}

func TestCreateLoan_OneActiveLoanPerBook(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	first := newTestLoan(alice.ID, "book-1984", time.Now())
	if err := db.Loans().CreateLoan(ctx, first); err != nil {
		t.Fatalf("CreateLoan() error = %v", err)
	}

	err := db.Loans().CreateLoan(ctx, newTestLoan(bob.ID, "book-1984", time.Now()))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second active loan error = %v, want ErrConflict", err)
	}

	// Once returned, the book can be lent again.
	if _, err := db.Loans().MarkReturned(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("MarkReturned() error = %v", err)
	}
	if err := db.Loans().CreateLoan(ctx, newTestLoan(bob.ID, "book-1984", time.Now())); err != nil {
		t.Fatalf("CreateLoan() after return error = %v", err)
	}
}

func TestCreateLoan_UnknownBookViolatesForeignKey(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "fk@example.com")

	err := db.Loans().CreateLoan(context.Background(), newTestLoan(user.ID, "no-such-book", time.Now()))
	if err == nil {
		t.Fatal("CreateLoan() should fail for an unknown book")
	}
}

func TestListLoansByUser_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "list@example.com")
	other := createTestUser(t, db, "other@example.com")

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	older := newTestLoan(user.ID, "book-1984", base)
	newer := newTestLoan(user.ID, "book-animal-farm", base.Add(time.Hour))
	foreign := newTestLoan(other.ID, "book-great-gatsby", base)
	for _, l := range []*model.Loan{older, newer, foreign} {
		if err := db.Loans().CreateLoan(ctx, l); err != nil {
			t.Fatalf("CreateLoan() error = %v", err)
		}
	}

	loans, err := db.Loans().ListLoansByUser(ctx, user.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListLoansByUser() error = %v", err)
	}
	if len(loans) != 2 {
		t.Fatalf("got %d loans, want 2", len(loans))
	}
	if loans[0].ID != newer.ID || loans[1].ID != older.ID {
		t.Errorf("order = [%s %s], want [%s %s]", loans[0].ID, loans[1].ID, newer.ID, older.ID)
	}
}

func TestMarkReturned(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "ret@example.com")

	loan := newTestLoan(user.ID, "book-pride-and-prejudice", time.Now().Add(-time.Hour))
	if err := db.Loans().CreateLoan(ctx, loan); err != nil {
		t.Fatalf("CreateLoan() error = %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	got, err := db.Loans().MarkReturned(ctx, loan.ID, at)
	if err != nil {
		t.Fatalf("MarkReturned() error = %v", err)
	}
	if !got.IsReturned || got.ReturnedAt == nil || !got.ReturnedAt.Equal(at) {
		t.Errorf("MarkReturned() = %+v, want returned at %v", got, at)
	}

	_, err = db.Loans().MarkReturned(ctx, loan.ID, at)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second MarkReturned() error = %v, want ErrConflict", err)
	}
}

func TestMarkReturned_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Loans().MarkReturned(context.Background(), "missing", time.Now())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("MarkReturned() error = %v, want ErrNotFound", err)
	}
}
