package server

import (
	"encoding/json"
	"net/http"

	"github.com/sakif/library-api/internal/auth"
	"github.com/sakif/library-api/internal/handler"
)

// route is one entry of the declaration table. Visibility left unset
// inherits the group's.
type route struct {
	method     string
	pattern    string
	handler    http.HandlerFunc
	visibility auth.Visibility
}

// routeGroup shares a path prefix and a default visibility.
type routeGroup struct {
	prefix     string
	visibility auth.Visibility
	routes     []route
}

type handlers struct {
	auth    *handler.AuthHandler
	catalog *handler.CatalogHandler
	loans   *handler.LoanHandler
	health  *handler.HealthHandler
}

// routeTable is the whole HTTP surface.
//
//	POST /auth/signup          public
//	POST /auth/signin          public
//	GET  /auth/me              protected (overrides the /auth group)
//	GET  /health               public
//	GET  /books, /books/{id}   protected
//	GET  /authors, /authors/{id}
//	GET  /loans, POST /loans, POST /loans/{id}/return
//
// Anything not listed here, including unknown paths, is protected.
func routeTable(h handlers) []routeGroup {
	return []routeGroup{
		{
			prefix:     "/auth",
			visibility: auth.Public,
			routes: []route{
				{method: http.MethodPost, pattern: "/signup", handler: h.auth.HandleSignUp},
				{method: http.MethodPost, pattern: "/signin", handler: h.auth.HandleSignIn},
				{method: http.MethodGet, pattern: "/me", handler: h.auth.HandleMe, visibility: auth.Protected},
			},
		},
		{
			visibility: auth.Public,
			routes: []route{
				{method: http.MethodGet, pattern: "/health", handler: h.health.HandleHealth},
			},
		},
		{
			prefix:     "/books",
			visibility: auth.Protected,
			routes: []route{
				{method: http.MethodGet, pattern: "", handler: h.catalog.HandleListBooks},
				{method: http.MethodGet, pattern: "/{id}", handler: h.catalog.HandleGetBook},
			},
		},
		{
			prefix:     "/authors",
			visibility: auth.Protected,
			routes: []route{
				{method: http.MethodGet, pattern: "", handler: h.catalog.HandleListAuthors},
				{method: http.MethodGet, pattern: "/{id}", handler: h.catalog.HandleGetAuthor},
			},
		},
		{
			prefix:     "/loans",
			visibility: auth.Protected,
			routes: []route{
				{method: http.MethodGet, pattern: "", handler: h.loans.HandleList},
				{method: http.MethodPost, pattern: "", handler: h.loans.HandleBorrow},
				{method: http.MethodPost, pattern: "/{id}/return", handler: h.loans.HandleReturn},
			},
		},
	}
}

// mount registers every route behind the gate at its resolved visibility.
//
// chi's NotFound and MethodNotAllowed handlers are guarded as Protected too,
// so an anonymous caller can't probe which paths exist: they get 401 for
// everything except the public routes.
func (s *Server) mount(groups []routeGroup) {
	for _, g := range groups {
		for _, rt := range g.routes {
			v := auth.ResolveVisibility(g.visibility, rt.visibility)
			s.router.With(s.gate.Guard(v)).Method(rt.method, g.prefix+rt.pattern, rt.handler)
		}
	}

	guard := s.gate.Guard(auth.Protected)
	s.router.NotFound(guard(http.HandlerFunc(handleNotFound)).ServeHTTP)
	s.router.MethodNotAllowed(guard(http.HandlerFunc(handleMethodNotAllowed)).ServeHTTP)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusNotFound, "not_found", "route not found")
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

func writeStatus(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handler.ErrorResponse{Error: kind, Message: message})
}
