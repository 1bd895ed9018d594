package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
	"github.com/google/uuid"
)

func TestMemoryCreateAndFind(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.CreateUser(ctx, session.RegistrationData{Email: "Ada@Example.com", Forename: "Ada"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid id, got %q", id)
	}

	u, err := m.FindByEmail(ctx, "ada@example.com")
	if err != nil || u.ID != id || u.Forename != "Ada" {
		t.Fatalf("find by email: u=%#v err=%v", u, err)
	}
	if u.PasswordHash != "" || u.Admin {
		t.Fatalf("new users must be credential-less customers: %#v", u)
	}

	if err := m.SetCredential(ctx, id, "hash"); err != nil {
		t.Fatalf("set credential failed: %v", err)
	}
	u, _ = m.FindByID(ctx, id)
	if u.PasswordHash != "hash" {
		t.Fatalf("credential not stored: %#v", u)
	}
}

func TestMemoryRejectsDuplicateEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateUser(ctx, session.RegistrationData{Email: "a@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := m.CreateUser(ctx, session.RegistrationData{Email: "A@example.com "}); !errors.Is(err, shopauth.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestMemoryDeleteFreesEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.CreateUser(ctx, session.RegistrationData{Email: "a@example.com"})
	if err := m.DeleteUser(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := m.DeleteUser(ctx, id); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if _, err := m.FindByEmail(ctx, "a@example.com"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := m.SetCredential(ctx, id, "x"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on update, got %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.Add(shopauth.UserRecord{Email: "a@example.com", TOTPSecret: []byte("secret")})
	u, _ := m.FindByID(ctx, id)
	u.TOTPSecret[0] = 'X'
	u.Admin = true

	again, _ := m.FindByID(ctx, id)
	if string(again.TOTPSecret) != "secret" || again.Admin {
		t.Fatalf("directory state leaked through returned record: %#v", again)
	}
}
