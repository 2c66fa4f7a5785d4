package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "filedrop-test"}
}

func TestMintAndParseAccessToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := MintAccessToken(testJWTConfig(), time.Now(), userID, time.Minute)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(testJWTConfig(), token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id %s, want %s", claims.UserID, userID)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(testJWTConfig(), time.Now().Add(-2*time.Hour), uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(testJWTConfig(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(config.JWTConfig{Secret: "test-secret", Issuer: "other"}, time.Now(), uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(testJWTConfig(), token); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(testJWTConfig(), time.Now(), uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(config.JWTConfig{Secret: "other-secret", Issuer: "filedrop-test"}, token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}
