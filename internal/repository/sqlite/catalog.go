package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

var _ repository.CatalogRepository = (*CatalogDB)(nil)

// CatalogDB reads books and authors. The catalog is read-only through the
// API; rows come from the seed migration.
type CatalogDB struct {
	conn *sql.DB
}

// ListBooks returns a page of books ordered by title, each with its authors.
//
// APPLICATION-LEVEL JOIN:
// Instead of one big JOIN that repeats every book row per author, we load the
// page of books first and then all their authors in a single second query
// (WHERE book_id IN (...)). Two round trips, no duplicated rows.
func (c *CatalogDB) ListBooks(ctx context.Context, opts repository.ListOptions) ([]model.Book, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, title, summary, isbn, published_at
		 FROM books ORDER BY title, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &b.PublishedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating books: %w", err)
	}

	if err := c.attachAuthors(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *CatalogDB) GetBook(ctx context.Context, id string) (*model.Book, error) {
	var b model.Book
	err := c.conn.QueryRowContext(ctx,
		`SELECT id, title, summary, isbn, published_at FROM books WHERE id = ?`, id,
	).Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &b.PublishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("book", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting book %s: %w", id, err)
	}

	books := []model.Book{b}
	if err := c.attachAuthors(ctx, books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

// attachAuthors fills Authors on every book in place.
func (c *CatalogDB) attachAuthors(ctx context.Context, books []model.Book) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]any, len(books))
	index := make(map[string]int, len(books))
	for i := range books {
		ids[i] = books[i].ID
		index[books[i].ID] = i
		books[i].Authors = []model.AuthorRef{}
	}

	rows, err := c.conn.QueryContext(ctx,
		`SELECT ba.book_id, a.id, a.name
		 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id IN (`+placeholders(len(ids))+`)
		 ORDER BY a.name`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID string
		var ref model.AuthorRef
		if err := rows.Scan(&bookID, &ref.ID, &ref.Name); err != nil {
			return fmt.Errorf("sqlite: scanning book author: %w", err)
		}
		if i, ok := index[bookID]; ok {
			books[i].Authors = append(books[i].Authors, ref)
		}
	}
	return rows.Err()
}

func (c *CatalogDB) ListAuthors(ctx context.Context, opts repository.ListOptions) ([]model.Author, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, name, bio, birth_date FROM authors ORDER BY name, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing authors: %w", err)
	}
	defer rows.Close()

	authors := []model.Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning author: %w", err)
		}
		authors = append(authors, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating authors: %w", err)
	}
	return authors, nil
}

func (c *CatalogDB) GetAuthor(ctx context.Context, id string) (*model.Author, error) {
	row := c.conn.QueryRowContext(ctx,
		`SELECT id, name, bio, birth_date FROM authors WHERE id = ?`, id)
	a, err := scanAuthor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("author", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting author %s: %w", id, err)
	}
	return a, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthor(s rowScanner) (*model.Author, error) {
	var (
		a     model.Author
		bio   sql.NullString
		birth sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.Name, &bio, &birth); err != nil {
		return nil, err
	}
	if bio.Valid {
		a.Bio = &bio.String
	}
	if birth.Valid {
		a.BirthDate = &birth.Time
	}
	return &a, nil
}
