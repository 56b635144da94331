package auth

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingToken = errors.New("token no encontrado")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the subset of the backend token we read locally. The signature is
// never checked here; the backend does that on every call.
type Claims struct {
	UserID    int64
	Roles     []string
	ExpiresAt time.Time
}

func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenStore holds the token of one session.
type TokenStore struct {
	mu     sync.RWMutex
	token  string
	claims Claims
	now    func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{now: time.Now}
}

// Set stores the token. Opaque (non-JWT) tokens are accepted with empty claims.
func (s *TokenStore) Set(token string) {
	claims, _ := ParseClaims(token)
	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()
}

func (s *TokenStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrMissingToken
	}
	if !s.claims.ExpiresAt.IsZero() && s.now().After(s.claims.ExpiresAt) {
		return "", ErrTokenExpired
	}
	return s.token, nil
}

// Optional returns the token when present and valid, or "" otherwise.
func (s *TokenStore) Optional() string {
	t, err := s.Token()
	if err != nil {
		return ""
	}
	return t
}

func (s *TokenStore) Claims() Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.claims = Claims{}
	s.mu.Unlock()
}

// ParseClaims decodes the token payload without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var c Claims
	for _, k := range []string{"user_id", "userId", "id"} {
		if id, ok := toInt64(mc[k]); ok {
			c.UserID = id
			break
		}
	}
	switch v := mc["roles"].(type) {
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok {
				c.Roles = append(c.Roles, s)
			}
		}
	case string:
		c.Roles = []string{v}
	}
	if role, ok := mc["role"].(string); ok && role != "" {
		c.Roles = append(c.Roles, role)
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
