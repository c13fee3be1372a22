package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the signed-in user as seen by the sync core.
type Identity struct {
	UserID      int64   `json:"user_id"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// Provider yields the current user, or ok=false when nobody is signed in.
type Provider interface {
	Current() (Identity, bool)
}

// Static is a fixed identity. The zero UserID means unauthenticated.
type Static Identity

func (s Static) Current() (Identity, bool) {
	if s.UserID == 0 {
		return Identity{}, false
	}
	return Identity(s), true
}

var (
	ErrTokenInvalid = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token has expired")
)

// Session holds the access token of the signed-in user.
type Session struct {
	secret []byte
	now    func() time.Time

	mu       sync.RWMutex
	token    string
	identity Identity
	expires  time.Time
}

// NewSession creates an empty session. When secret is non-empty, tokens must
// carry a valid HMAC signature; otherwise signatures are not checked and the
// remote API remains the authority on the token.
func NewSession(secret string) *Session {
	return &Session{secret: []byte(secret), now: time.Now}
}

// SetToken signs in with an access token.
func (s *Session) SetToken(tokenString string) error {
	claims := jwt.MapClaims{}
	var err error
	if len(s.secret) > 0 {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return fmt.Errorf("%w: missing user_id claim", ErrTokenInvalid)
	}

	id := Identity{
		UserID:      int64(userIDFloat),
		DisplayName: optionalClaim(claims, "display_name"),
		AvatarURL:   optionalClaim(claims, "avatar_url"),
	}

	var expires time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expires = exp.Time
		if !s.now().Before(expires) {
			return ErrTokenExpired
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tokenString
	s.identity = id
	s.expires = expires
	return nil
}

// Clear signs out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = Identity{}
	s.expires = time.Time{}
}

// Current returns the signed-in user. An expired token reads as signed out.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return Identity{}, false
	}
	return s.identity, true
}

// Token returns the raw access token for the remote API.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return "", false
	}
	return s.token, true
}

func (s *Session) validLocked() bool {
	if s.token == "" {
		return false
	}
	return s.expires.IsZero() || s.now().Before(s.expires)
}

func optionalClaim(claims jwt.MapClaims, name string) *string {
	v, ok := claims[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
