// Package sqlite is a UserDirectory persisted in SQLite.
//
// Users, passwords and TOTP secrets live in separate tables so a user can
// exist without a credential for the short window of a signup commit.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	forename   TEXT NOT NULL,
	surname    TEXT NOT NULL,
	address    TEXT NOT NULL,
	admin      INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS passwords (
	user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	hash    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS totp (
	user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	secret  BLOB NOT NULL
);
`

const selectUser = `
SELECT u.id, u.email, u.forename, u.surname, u.address, u.admin,
       COALESCE(p.hash, ''), t.secret
FROM users u
LEFT JOIN passwords p ON p.user_id = u.id
LEFT JOIN totp t ON t.user_id = u.id
`

// Directory is a SQLite-backed shopauth.UserDirectory.
type Directory struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Directory, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	d, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// New applies the schema to an already open database.
func New(ctx context.Context, db *sql.DB) (*Directory, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Directory{db: db}, nil
}

// Close closes the underlying database.
func (d *Directory) Close() error {
	return d.db.Close()
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*shopauth.UserRecord, error) {
	row := d.db.QueryRowContext(ctx, selectUser+"WHERE u.email = ?", normalize(email))
	return scanUser(row)
}

func (d *Directory) FindByID(ctx context.Context, userID string) (*shopauth.UserRecord, error) {
	row := d.db.QueryRowContext(ctx, selectUser+"WHERE u.id = ?", userID)
	return scanUser(row)
}

// CreateUser inserts a customer without a credential.
func (d *Directory) CreateUser(ctx context.Context, data session.RegistrationData) (string, error) {
	id := uuid.NewString()
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, email, forename, surname, address, admin, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		id, normalize(data.Email), data.Forename, data.Surname, data.Address, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", shopauth.ErrDuplicateEmail
		}
		return "", err
	}
	return id, nil
}

// SetCredential stores or replaces the user's password hash.
func (d *Directory) SetCredential(ctx context.Context, userID, credential string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO passwords (user_id, hash) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET hash = excluded.hash`,
		userID, credential,
	)
	if isForeignKeyViolation(err) {
		return shopauth.ErrUserNotFound
	}
	return err
}

// SetTOTPSecret stores or replaces the user's TOTP secret.
func (d *Directory) SetTOTPSecret(ctx context.Context, userID string, secret []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO totp (user_id, secret) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET secret = excluded.secret`,
		userID, secret,
	)
	if isForeignKeyViolation(err) {
		return shopauth.ErrUserNotFound
	}
	return err
}

// SetAdmin grants or revokes the administrator role.
func (d *Directory) SetAdmin(ctx context.Context, userID string, admin bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE users SET admin = ? WHERE id = ?`, admin, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return shopauth.ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user and, by cascade, their credentials. Deleting
// an unknown user is not an error.
func (d *Directory) DeleteUser(ctx context.Context, userID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (*shopauth.UserRecord, error) {
	var (
		u      shopauth.UserRecord
		secret []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Forename, &u.Surname, &u.Address, &u.Admin, &u.PasswordHash, &secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shopauth.ErrUserNotFound
		}
		return nil, err
	}
	if len(secret) > 0 {
		u.TOTPSecret = secret
	}
	return &u, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
