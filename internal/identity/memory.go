package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type memAccount struct {
	user User
	hash []byte
}

// Memory is an in-process provider issuing HS256 sessions. It backs local
// development and tests.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	secret   []byte
	accounts map[string]*memAccount // by user id
	byEmail  map[string]string      // email -> user id
	refresh  map[string]string      // refresh token -> user id
	revoked  map[string]bool        // access tokens
	now      func() time.Time
	resets   []string
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	secret := make([]byte, 32)
	rand.Read(secret)
	return &Memory{
		ttl:      ttl,
		secret:   secret,
		accounts: make(map[string]*memAccount),
		byEmail:  make(map[string]string),
		refresh:  make(map[string]string),
		revoked:  make(map[string]bool),
		now:      time.Now,
	}
}

func (m *Memory) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 6 {
		return nil, fmt.Errorf("signing up: %w", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrUserExists
	}
	acct := &memAccount{
		user: User{ID: uuid.NewString(), Email: email, Username: usernameFromEmail(email)},
		hash: hash,
	}
	m.accounts[acct.user.ID] = acct
	m.byEmail[email] = acct.user.ID
	return m.issue(acct)
}

func (m *Memory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[m.byEmail[email]]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return m.issue(acct)
}

func (m *Memory) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[refreshToken]
	if !ok {
		return nil, ErrInvalidSession
	}
	delete(m.refresh, refreshToken)
	acct, ok := m.accounts[id]
	if !ok {
		return nil, ErrInvalidSession
	}
	return m.issue(acct)
}

func (m *Memory) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.verify(accessToken)
	if err != nil {
		return err
	}
	m.revoked[accessToken] = true
	for tok, id := range m.refresh {
		if id == acct.user.ID {
			delete(m.refresh, tok)
		}
	}
	return nil
}

// ResetPassword records the request. Unknown addresses are accepted silently.
func (m *Memory) ResetPassword(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, strings.ToLower(strings.TrimSpace(email)))
	return nil
}

func (m *Memory) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("updating password: %w", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.verify(accessToken)
	if err != nil {
		return err
	}
	acct.hash = hash
	return nil
}

func (m *Memory) UpdateEmail(ctx context.Context, accessToken, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("updating email: %w", ErrInvalidCredentials)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, err := m.verify(accessToken)
	if err != nil {
		return err
	}
	if _, taken := m.byEmail[email]; taken {
		return ErrUserExists
	}
	delete(m.byEmail, acct.user.Email)
	acct.user.Email = email
	m.byEmail[email] = acct.user.ID
	return nil
}

// issue must be called with m.mu held.
func (m *Memory) issue(acct *memAccount) (*Session, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub":   acct.user.ID,
		"email": acct.user.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
		"jti":   uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	buf := make([]byte, 24)
	rand.Read(buf)
	refresh := hex.EncodeToString(buf)
	m.refresh[refresh] = acct.user.ID

	return &Session{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    time.Unix(exp.Unix(), 0),
		User:         acct.user,
	}, nil
}

// verify must be called with m.mu held.
func (m *Memory) verify(accessToken string) (*memAccount, error) {
	if m.revoked[accessToken] {
		return nil, ErrInvalidSession
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidSession
	}
	sub, _ := claims.GetSubject()
	acct, ok := m.accounts[sub]
	if !ok {
		return nil, ErrInvalidSession
	}
	return acct, nil
}
