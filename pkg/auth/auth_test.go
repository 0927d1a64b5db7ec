package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidateServiceToken(t *testing.T) {
	if err := ValidateServiceToken("", "expected"); err == nil {
		t.Fatalf("expected missing token error")
	}
	if err := ValidateServiceToken("bad", "expected"); err == nil {
		t.Fatalf("expected invalid token error")
	}
	if err := ValidateServiceToken("expected", "expected"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTGenerateValidate(t *testing.T) {
	secret := []byte("s3cr3t")
	token, err := GenerateJWT("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "employer", secret)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	claims, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("validate jwt: %v", err)
	}
	if claims.WalletAddress != "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045" || claims.Role != "employer" {
		t.Fatalf("claims mismatch")
	}
}

func TestJWTValidationEdgeCases(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateJWT("0xabc", "employer", []byte("correct-secret"))
		_, err := ValidateJWT(token, []byte("wrong-secret"))
		if !errors.Is(err, ErrInvalidJWT) {
			t.Fatalf("expected ErrInvalidJWT, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &Claims{
			WalletAddress: "0xabc",
			Role:          "employer",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cr3t"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		_, err = ValidateJWT(token, []byte("s3cr3t"))
		if !errors.Is(err, ErrExpiredJWT) {
			t.Fatalf("expected ErrExpiredJWT, got %v", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ValidateJWT("not.a.token", []byte("s3cr3t"))
		if !errors.Is(err, ErrInvalidJWT) {
			t.Fatalf("expected ErrInvalidJWT, got %v", err)
		}
	})
}
