package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

var _ repository.LoanRepository = (*LoanDB)(nil)

// LoanDB stores loans. The partial unique index idx_loans_active_book keeps
// a book from being lent twice at once.
type LoanDB struct {
	conn *sql.DB
}

const loanColumns = `id, user_id, book_id, borrowed_at, due_date, returned_at, is_returned, updated_at`

func (l *LoanDB) CreateLoan(ctx context.Context, loan *model.Loan) error {
	loan.ID = xid.New().String()
	loan.UpdatedAt = time.Now().UTC()

	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID,
		loan.UserID,
		loan.BookID,
		loan.BorrowedAt.UTC(),
		nullTime(loan.DueDate),
		nullTime(loan.ReturnedAt),
		loan.IsReturned,
		loan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("book is already on loan")
		}
		return fmt.Errorf("sqlite: inserting loan: %w", err)
	}
	return nil
}

func (l *LoanDB) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	row := l.conn.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("loan", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting loan %s: %w", id, err)
	}
	return loan, nil
}

func (l *LoanDB) ListLoansByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Loan, error) {
	rows, err := l.conn.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE user_id = ?
		 ORDER BY borrowed_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing loans: %w", err)
	}
	defer rows.Close()

	loans := []model.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating loans: %w", err)
	}
	return loans, nil
}

// MarkReturned closes an active loan.
//
// The "returned_at IS NULL" guard makes the UPDATE itself the check: if two
// returns race, only one changes a row and the other sees zero rows affected.
func (l *LoanDB) MarkReturned(ctx context.Context, id string, at time.Time) (*model.Loan, error) {
	at = at.UTC()
	res, err := l.conn.ExecContext(ctx,
		`UPDATE loans SET returned_at = ?, is_returned = 1, updated_at = ?
		 WHERE id = ? AND returned_at IS NULL`,
		at, at, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: returning loan %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: returning loan %s: %w", id, err)
	}
	if n == 0 {
		// Either missing or already returned; GetLoan tells which.
		if _, err := l.GetLoan(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperror.ConflictMessage("loan already returned")
	}
	return l.GetLoan(ctx, id)
}

func scanLoan(s rowScanner) (*model.Loan, error) {
	var (
		loan     model.Loan
		due      sql.NullTime
		returned sql.NullTime
	)
	if err := s.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.BookID,
		&loan.BorrowedAt,
		&due,
		&returned,
		&loan.IsReturned,
		&loan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if due.Valid {
		loan.DueDate = &due.Time
	}
	if returned.Valid {
		loan.ReturnedAt = &returned.Time
	}
	return &loan, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
