package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/xid"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

var _ repository.LoanRepository = (*LoanDB)(nil)

type LoanDB struct {
	pool *pgxpool.Pool
}

const loanColumns = `id, user_id, book_id, borrowed_at, due_date, returned_at, is_returned, updated_at`

func (l *LoanDB) CreateLoan(ctx context.Context, loan *model.Loan) error {
	const op = "postgres.LoanDB.CreateLoan"

	loan.ID = xid.New().String()
	loan.UpdatedAt = time.Now().UTC()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		loan.ID, loan.UserID, loan.BookID, loan.BorrowedAt,
		loan.DueDate, loan.ReturnedAt, loan.IsReturned, loan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("book is already on loan")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (l *LoanDB) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	const op = "postgres.LoanDB.GetLoan"

	loan, err := scanLoan(l.pool.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("loan", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return loan, nil
}

func (l *LoanDB) ListLoansByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Loan, error) {
	const op = "postgres.LoanDB.ListLoansByUser"

	rows, err := l.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE user_id = $1
		 ORDER BY borrowed_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	loans := []model.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}
	return loans, nil
}

// MarkReturned uses UPDATE ... RETURNING so the guard and the read happen in
// one statement.
func (l *LoanDB) MarkReturned(ctx context.Context, id string, at time.Time) (*model.Loan, error) {
	const op = "postgres.LoanDB.MarkReturned"

	loan, err := scanLoan(l.pool.QueryRow(ctx,
		`UPDATE loans SET returned_at = $1, is_returned = TRUE, updated_at = $1
		 WHERE id = $2 AND returned_at IS NULL
		 RETURNING `+loanColumns,
		at.UTC(), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := l.GetLoan(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperror.ConflictMessage("loan already returned")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return loan, nil
}

func scanLoan(row pgx.Row) (*model.Loan, error) {
	var loan model.Loan
	if err := row.Scan(
		&loan.ID, &loan.UserID, &loan.BookID, &loan.BorrowedAt,
		&loan.DueDate, &loan.ReturnedAt, &loan.IsReturned, &loan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &loan, nil
}
