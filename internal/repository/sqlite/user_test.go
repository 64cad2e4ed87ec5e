package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/library-api/internal/apperror"
	"github.com/sakif/library-api/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: "$2a$04$hash",
	}

	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.Role != model.RoleMember {
		t.Errorf("Role = %q, want default %q", user.Role, model.RoleMember)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	duplicate := &model.User{Name: "Second", Email: "dup@example.com", PasswordHash: "x"}
	err := db.Users().Create(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_KeepsAdminRole(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Admin", Email: "admin@example.com", PasswordHash: "x", Role: model.RoleAdmin}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleAdmin)
	}
}

func TestUserCreate_RejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "X", Email: "x@example.com", PasswordHash: "x", Role: "superuser"}
	err := db.Users().Create(context.Background(), user)
	if err == nil {
		t.Fatal("Create() should fail the role CHECK constraint")
	}
	if errors.Is(err, apperror.ErrConflict) {
		t.Error("a CHECK failure must not be reported as a conflict")
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "find@example.com")

	got, err := db.Users().GetByEmail(context.Background(), "find@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.PasswordHash != created.PasswordHash {
		t.Error("GetByEmail() must return the stored hash for verification")
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "byid@example.com")

	got, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "byid@example.com" || got.Name != "Test User" {
		t.Errorf("GetByID() = %+v", got)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}
