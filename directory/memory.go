package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
	"github.com/google/uuid"
)

// Memory is an in-process UserDirectory. Records are copied in and out, so
// callers never share state with the directory.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]shopauth.UserRecord
	byEmail map[string]string
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]shopauth.UserRecord),
		byEmail: make(map[string]string),
	}
}

// Add inserts user as is, assigning an id when it has none.
func (m *Memory) Add(user shopauth.UserRecord) (string, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[user.Email]; taken {
		return "", shopauth.ErrDuplicateEmail
	}
	m.byID[user.ID] = clone(user)
	m.byEmail[user.Email] = user.ID
	return user.ID, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*shopauth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, shopauth.ErrUserNotFound
	}
	u := clone(m.byID[id])
	return &u, nil
}

func (m *Memory) FindByID(_ context.Context, userID string) (*shopauth.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[userID]
	if !ok {
		return nil, shopauth.ErrUserNotFound
	}
	u = clone(u)
	return &u, nil
}

// CreateUser inserts a customer without a credential.
func (m *Memory) CreateUser(_ context.Context, data session.RegistrationData) (string, error) {
	return m.Add(shopauth.UserRecord{
		Email:    data.Email,
		Forename: data.Forename,
		Surname:  data.Surname,
		Address:  data.Address,
	})
}

func (m *Memory) SetCredential(_ context.Context, userID, credential string) error {
	return m.update(userID, func(u *shopauth.UserRecord) { u.PasswordHash = credential })
}

func (m *Memory) SetTOTPSecret(_ context.Context, userID string, secret []byte) error {
	return m.update(userID, func(u *shopauth.UserRecord) { u.TOTPSecret = append([]byte(nil), secret...) })
}

// SetAdmin grants or revokes the administrator role.
func (m *Memory) SetAdmin(_ context.Context, userID string, admin bool) error {
	return m.update(userID, func(u *shopauth.UserRecord) { u.Admin = admin })
}

// DeleteUser removes userID. Deleting an unknown user is not an error.
func (m *Memory) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byID[userID]; ok {
		delete(m.byEmail, u.Email)
		delete(m.byID, userID)
	}
	return nil
}

// Len returns the number of users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *Memory) update(userID string, fn func(*shopauth.UserRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return shopauth.ErrUserNotFound
	}
	fn(&u)
	m.byID[userID] = u
	return nil
}

func clone(u shopauth.UserRecord) shopauth.UserRecord {
	if u.TOTPSecret != nil {
		u.TOTPSecret = append([]byte(nil), u.TOTPSecret...)
	}
	return u
}
