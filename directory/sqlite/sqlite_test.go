package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
)

func openTest(t *testing.T) *Directory {
	t.Helper()
	d, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestCreateFindAndCredential(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	id, err := d.CreateUser(ctx, session.RegistrationData{Email: "Ada@example.com", Forename: "Ada", Surname: "L", Address: "1 Road"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	u, err := d.FindByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("find by email failed: %v", err)
	}
	if u.ID != id || u.PasswordHash != "" || u.Admin || u.HasSecondFactor() {
		t.Fatalf("unexpected fresh user %#v", u)
	}

	if err := d.SetCredential(ctx, id, "hash-1"); err != nil {
		t.Fatalf("set credential failed: %v", err)
	}
	if err := d.SetCredential(ctx, id, "hash-2"); err != nil {
		t.Fatalf("replace credential failed: %v", err)
	}
	if err := d.SetTOTPSecret(ctx, id, []byte("12345678901234567890")); err != nil {
		t.Fatalf("set totp failed: %v", err)
	}
	if err := d.SetAdmin(ctx, id, true); err != nil {
		t.Fatalf("set admin failed: %v", err)
	}

	u, err = d.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find by id failed: %v", err)
	}
	if u.PasswordHash != "hash-2" || !u.Admin || string(u.TOTPSecret) != "12345678901234567890" {
		t.Fatalf("unexpected user after updates %#v", u)
	}
}

func TestDuplicateEmail(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	if _, err := d.CreateUser(ctx, session.RegistrationData{Email: "a@example.com"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := d.CreateUser(ctx, session.RegistrationData{Email: "A@example.com"}); !errors.Is(err, shopauth.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	id, _ := d.CreateUser(ctx, session.RegistrationData{Email: "a@example.com"})
	if err := d.SetCredential(ctx, id, "hash"); err != nil {
		t.Fatalf("set credential failed: %v", err)
	}
	if err := d.DeleteUser(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := d.FindByEmail(ctx, "a@example.com"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passwords`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected credential to cascade, %d rows left", n)
	}
}

func TestUpdatesOnUnknownUser(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	if err := d.SetCredential(ctx, "nobody", "hash"); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("set credential: expected ErrUserNotFound, got %v", err)
	}
	if err := d.SetAdmin(ctx, "nobody", true); !errors.Is(err, shopauth.ErrUserNotFound) {
		t.Fatalf("set admin: expected ErrUserNotFound, got %v", err)
	}
	if err := d.DeleteUser(ctx, "nobody"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
}
