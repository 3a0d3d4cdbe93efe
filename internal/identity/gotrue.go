package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-success response the client could not map to a
// package error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth server: %d %s", e.Status, e.Message)
}

// GoTrue is a client for a GoTrue-compatible auth server, such as the one
// behind a Supabase project. baseURL is the auth root, for example
// https://project.supabase.co/auth/v1.
type GoTrue struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

func NewGoTrue(baseURL, apiKey string) *GoTrue {
	return &GoTrue{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

type credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	} `json:"user"`

	// Sign-up without auto-confirm returns the bare user.
	ID    string `json:"id"`
	Email string `json:"email"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
}

func (g *GoTrue) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	status, err := g.do(ctx, http.MethodPost, "/signup", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (status == http.StatusUnprocessableEntity || strings.Contains(apiErr.Message, "already")) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("signing up: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	return g.session(resp), nil
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	status, err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return g.session(resp), nil
}

func (g *GoTrue) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	status, err := g.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &resp)
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	return g.session(resp), nil
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	status, err := g.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	if err != nil {
		if status == http.StatusUnauthorized {
			return ErrInvalidSession
		}
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

func (g *GoTrue) ResetPassword(ctx context.Context, email string) error {
	if _, err := g.do(ctx, http.MethodPost, "/recover", "", credentials{Email: email}, nil); err != nil {
		return fmt.Errorf("requesting password reset: %w", err)
	}
	return nil
}

func (g *GoTrue) UpdatePassword(ctx context.Context, accessToken, password string) error {
	return g.updateUser(ctx, accessToken, credentials{Password: password})
}

func (g *GoTrue) UpdateEmail(ctx context.Context, accessToken, email string) error {
	return g.updateUser(ctx, accessToken, credentials{Email: email})
}

func (g *GoTrue) updateUser(ctx context.Context, accessToken string, body credentials) error {
	status, err := g.do(ctx, http.MethodPut, "/user", accessToken, body, nil)
	if err != nil {
		if status == http.StatusUnauthorized {
			return ErrInvalidSession
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

func (g *GoTrue) session(resp tokenResponse) *Session {
	s := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	switch exp, ok := TokenExpiry(resp.AccessToken); {
	case ok:
		s.ExpiresAt = exp
	case resp.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		s.ExpiresAt = g.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if resp.User != nil {
		s.User = User{ID: resp.User.ID, Email: resp.User.Email}
		if name, ok := resp.User.UserMetadata["username"].(string); ok {
			s.User.Username = name
		}
	}
	if s.User.Username == "" {
		s.User.Username = usernameFromEmail(s.User.Email)
	}
	return s
}

// do sends one request. It returns the response status alongside any error
// so callers can map well-known failures.
func (g *GoTrue) do(ctx context.Context, method, path, bearer string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer == "" {
		bearer = g.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func errorMessage(data []byte) string {
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error, e.ErrorCode} {
		if m != "" {
			return m
		}
	}
	return strings.TrimSpace(string(data))
}
