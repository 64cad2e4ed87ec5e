package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
	"github.com/sakif/library-api/internal/repository"
)

var _ repository.CatalogRepository = (*CatalogDB)(nil)

type CatalogDB struct {
	pool *pgxpool.Pool
}

func (c *CatalogDB) ListBooks(ctx context.Context, opts repository.ListOptions) ([]model.Book, error) {
	const op = "postgres.CatalogDB.ListBooks"

	rows, err := c.pool.Query(ctx,
		`SELECT id, title, summary, isbn, published_at
		 FROM books ORDER BY title COLLATE "C", id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &b.PublishedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}

	if err := c.attachAuthors(ctx, books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *CatalogDB) GetBook(ctx context.Context, id string) (*model.Book, error) {
	const op = "postgres.CatalogDB.GetBook"

	var b model.Book
	err := c.pool.QueryRow(ctx,
		`SELECT id, title, summary, isbn, published_at FROM books WHERE id = $1`, id,
	).Scan(&b.ID, &b.Title, &b.Summary, &b.ISBN, &b.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("book", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	books := []model.Book{b}
	if err := c.attachAuthors(ctx, books); err != nil {
		return nil, err
	}
	return &books[0], nil
}

// attachAuthors loads authors for all books with one "= ANY($1)" query.
func (c *CatalogDB) attachAuthors(ctx context.Context, books []model.Book) error {
	const op = "postgres.CatalogDB.attachAuthors"
	if len(books) == 0 {
		return nil
	}

	ids := make([]string, len(books))
	index := make(map[string]int, len(books))
	for i := range books {
		ids[i] = books[i].ID
		index[books[i].ID] = i
		books[i].Authors = []model.AuthorRef{}
	}

	rows, err := c.pool.Query(ctx,
		`SELECT ba.book_id, a.id, a.name
		 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		 WHERE ba.book_id = ANY($1)
		 ORDER BY a.name COLLATE "C"`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID string
		var ref model.AuthorRef
		if err := rows.Scan(&bookID, &ref.ID, &ref.Name); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if i, ok := index[bookID]; ok {
			books[i].Authors = append(books[i].Authors, ref)
		}
	}
	return rows.Err()
}

func (c *CatalogDB) ListAuthors(ctx context.Context, opts repository.ListOptions) ([]model.Author, error) {
	const op = "postgres.CatalogDB.ListAuthors"

	rows, err := c.pool.Query(ctx,
		`SELECT id, name, bio, birth_date FROM authors ORDER BY name COLLATE "C", id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	authors := []model.Author{}
	for rows.Next() {
		var a model.Author
		// pgx scans NULL into a nil pointer.
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio, &a.BirthDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows): %w", op, err)
	}
	return authors, nil
}

func (c *CatalogDB) GetAuthor(ctx context.Context, id string) (*model.Author, error) {
	const op = "postgres.CatalogDB.GetAuthor"

	var a model.Author
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, bio, birth_date FROM authors WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Bio, &a.BirthDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("author", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}
