package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ballotbox/ballotbox/internal/model"
)

const testSecret = "test-secret-of-adequate-length"

func testUser() *model.User {
	return &model.User{
		ID:    "01HX5ZZKBKACTAV9WEVGEMMVRZ",
		Email: "voter@example.com",
		Role:  model.RoleVoter,
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", time.Hour)

	token, expiresAt, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if token == "" {
		t.Fatal("Issue returned empty token")
	}

	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiry should be ~1h out, got %s", remaining)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.Subject != "voter@example.com" {
		t.Errorf("Subject = %s, want voter@example.com", claims.Subject)
	}
	if claims.UserID != "01HX5ZZKBKACTAV9WEVGEMMVRZ" {
		t.Errorf("UserID = %s, want the issuing user's ID", claims.UserID)
	}
	if claims.Role != string(model.RoleVoter) {
		t.Errorf("Role = %s, want voter", claims.Role)
	}
	if claims.Issuer != "ballotbox" {
		t.Errorf("Issuer = %s, want ballotbox", claims.Issuer)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", -time.Minute)

	token, _, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = mgr.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager(testSecret, "ballotbox", time.Hour)
	verifier := NewTokenManager("a-completely-different-secret", "ballotbox", time.Hour)

	token, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager(testSecret, "someone-else", time.Hour)
	verifier := NewTokenManager(testSecret, "ballotbox", time.Hour)

	token, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_TamperedToken(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", time.Hour)

	token, _, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Flip a character in the payload segment
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := mgr.Verify(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_RejectsUnsignedToken(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", time.Hour)

	// Craft an alg=none token with otherwise valid claims
	claims := Claims{
		Role:   string(model.RoleSuperadmin),
		UserID: "01HX5ZZKBKACTAV9WEVGEMMVRZ",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker@example.com",
			Issuer:    "ballotbox",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing unsigned token failed: %v", err)
	}

	if _, err := mgr.Verify(raw); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenManager_GarbageInput(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", time.Hour)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a token", "not-a-token"},
		{"two segments", "aaaa.bbbb"},
		{"four segments", "aaaa.bbbb.cccc.dddd"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := mgr.Verify(tt.raw); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", tt.raw, err)
			}
		})
	}
}

func TestTokenManager_TTL(t *testing.T) {
	t.Parallel()

	mgr := NewTokenManager(testSecret, "ballotbox", 45*time.Minute)
	if mgr.TTL() != 45*time.Minute {
		t.Errorf("TTL = %s, want 45m", mgr.TTL())
	}
}
