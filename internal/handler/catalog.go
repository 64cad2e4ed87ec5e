package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
)

// CatalogReader is implemented by service.CatalogService.
type CatalogReader interface {
	ListBooks(ctx context.Context, limit, offset int) ([]model.Book, error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	ListAuthors(ctx context.Context, limit, offset int) ([]model.Author, error)
	GetAuthor(ctx context.Context, id string) (*model.Author, error)
}

// CatalogHandler serves the read-only catalog:
//
//	GET /books?limit=&offset=
//	GET /books/{id}
//	GET /authors?limit=&offset=
//	GET /authors/{id}
type CatalogHandler struct {
	catalog CatalogReader
	logger  *slog.Logger
}

func NewCatalogHandler(catalog CatalogReader, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	books, err := h.catalog.ListBooks(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *CatalogHandler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *CatalogHandler) HandleListAuthors(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	authors, err := h.catalog.ListAuthors(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

func (h *CatalogHandler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	author, err := h.catalog.GetAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// pagination reads ?limit= and ?offset=. Missing values are 0, which the
// service turns into its defaults; non-numeric values are a 400.
func pagination(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}
