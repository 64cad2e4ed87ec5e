// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// DEPENDENCY INJECTION:
// Services take repository interfaces (repository.UserRepository, ...), never
// a concrete *sqlite.DB or *postgres.DB. Tests pass hand-written fakes; main
// picks the real store from configuration.
package service

import "github.com/sakif/library-api/internal/repository"

// Pagination limits shared by every list operation.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// page clamps caller-supplied pagination into repository options.
//
//	limit <= 0          → DefaultListLimit
//	limit > MaxListLimit → MaxListLimit
//	offset < 0          → 0
func page(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
