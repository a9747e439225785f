package jwtutil

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, 7, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || claims.Subject != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	expired, err := GenerateToken("secret", -time.Minute, 7, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	valid, _ := GenerateToken("secret", time.Minute, 7, "alice")

	cases := map[string]struct {
		secret, token string
	}{
		"expired":      {"secret", expired},
		"wrong secret": {"other", valid},
		"garbage":      {"secret", "not.a.token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(tc.secret, tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
