package mealsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCredentialsRequired is returned before any request when email or password is empty.
var ErrCredentialsRequired = errors.New("email and password are required")

// Session is the result of a successful login or registration.
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Expired reports whether the session token is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Login exchanges credentials for an access token and starts sending it.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "login", "/auth/login", email, password)
}

// Register creates an account and starts sending its access token.
func (c *HTTPClient) Register(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "register", "/auth/register", email, password)
}

func (c *HTTPClient) authenticate(ctx context.Context, op, path, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	req := map[string]string{"email": email, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, op, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &Error{Op: op, Kind: KindServer, StatusCode: http.StatusOK, Err: fmt.Errorf("no access token in response")}
	}

	session := SessionFromToken(resp.AccessToken)
	c.SetToken(session.Token)
	return &session, nil
}

// SessionFromToken reads the subject and expiry out of a JWT access token.
// The signature is not checked; only the backend can do that. Tokens that
// are not JWTs yield a session with just the token set.
func SessionFromToken(token string) Session {
	session := Session{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return session
	}
	if sub, err := claims.GetSubject(); err == nil {
		session.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session
}
