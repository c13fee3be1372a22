package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestSession_SetTokenValid(t *testing.T) {
	session := NewSession(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":      float64(42),
		"display_name": "Alice",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	if err := session.SetToken(token); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	id, ok := session.Current()
	if !ok {
		t.Fatal("expected authenticated session")
	}
	if id.UserID != 42 {
		t.Errorf("UserID = %d, want 42", id.UserID)
	}
	if id.DisplayName == nil || *id.DisplayName != "Alice" {
		t.Errorf("DisplayName = %v, want Alice", id.DisplayName)
	}
	if id.AvatarURL != nil {
		t.Errorf("AvatarURL = %v, want nil", *id.AvatarURL)
	}

	raw, ok := session.Token()
	if !ok || raw != token {
		t.Error("Token should return the raw access token")
	}
}

func TestSession_SetTokenRejectsBadSignature(t *testing.T) {
	session := NewSession(testSecret)
	token := signToken(t, "other-secret", jwt.MapClaims{"user_id": float64(1)})

	err := session.SetToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
	if _, ok := session.Current(); ok {
		t.Error("session should stay unauthenticated")
	}
}

func TestSession_SetTokenExpired(t *testing.T) {
	session := NewSession(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(1),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})

	if err := session.SetToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestSession_ExpiresWhileSignedIn(t *testing.T) {
	session := NewSession("")
	now := time.Now()
	session.now = func() time.Time { return now }

	token := signToken(t, "whatever", jwt.MapClaims{
		"user_id": float64(3),
		"exp":     now.Add(time.Minute).Unix(),
	})
	if err := session.SetToken(token); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if _, ok := session.Current(); !ok {
		t.Fatal("expected authenticated session")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := session.Current(); ok {
		t.Error("expired session should read as unauthenticated")
	}
}

func TestSession_MissingUserID(t *testing.T) {
	session := NewSession(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "nobody"})
	if err := session.SetToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestSession_Clear(t *testing.T) {
	session := NewSession(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"user_id": float64(9)})
	if err := session.SetToken(token); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	session.Clear()
	if _, ok := session.Current(); ok {
		t.Error("cleared session should be unauthenticated")
	}
}

func TestStatic(t *testing.T) {
	if _, ok := (Static{}).Current(); ok {
		t.Error("zero Static should be unauthenticated")
	}
	id, ok := Static{UserID: 5}.Current()
	if !ok || id.UserID != 5 {
		t.Errorf("Static{5}.Current() = (%+v, %v)", id, ok)
	}
}
