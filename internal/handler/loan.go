package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/auth"
	"github.com/sakif/library-api/internal/model"
)

// Lender is implemented by service.LoanService.
type Lender interface {
	Borrow(ctx context.Context, userID, bookID string, dueDate *time.Time) (*model.Loan, error)
	Return(ctx context.Context, userID, loanID string) (*model.Loan, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Loan, error)
}

// LoanHandler serves the caller's own loans. The user is always the token
// subject; no route takes a user ID from the client.
type LoanHandler struct {
	loans  Lender
	logger *slog.Logger
}

func NewLoanHandler(loans Lender, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{loans: loans, logger: logger}
}

// BorrowRequest is the body of POST /loans. DueDate is RFC 3339 and optional.
type BorrowRequest struct {
	BookID  string     `json:"bookId"  validate:"required"`
	DueDate *time.Time `json:"dueDate"`
}

// HandleBorrow lends a book to the caller.
//
// HTTP: POST /loans
// RESPONSES: 201 loan, 400 invalid body or due date, 404 unknown book,
// 409 book already on loan
func (h *LoanHandler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(r)
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req BorrowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.Borrow(r.Context(), userID, req.BookID, req.DueDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// HandleReturn closes one of the caller's loans.
//
// HTTP: POST /loans/{id}/return
// RESPONSES: 200 loan, 403 not the caller's loan, 404 unknown loan,
// 409 already returned
func (h *LoanHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(r)
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	loan, err := h.loans.Return(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// HandleList returns the caller's loans, newest first.
//
// HTTP: GET /loans?limit=&offset=
func (h *LoanHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(r)
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	loans, err := h.loans.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// subject is the verified user ID the gate attached to the request.
func subject(r *http.Request) (string, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
