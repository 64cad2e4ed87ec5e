package model

import "time"

// Loan records one user borrowing one book.
//
// A loan is active until ReturnedAt is set. The schema allows at most one
// active loan per book (partial unique index on loans.book_id).
type Loan struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	BookID     string     `json:"bookId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	IsReturned bool       `json:"isReturned"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
