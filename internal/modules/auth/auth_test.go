package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/commonshub/core/internal/config"
	jwtpkg "github.com/commonshub/core/internal/pkg/jwt"
)

func init() {
	jwtpkg.SetSecret("test-secret")
}

func TestLoginWithBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := NewService(&config.AppConfig{
		Env:   "production",
		Admin: config.AdminConfig{Username: "admin", PasswordHash: string(hash)},
	})

	token, err := svc.Login("admin", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := jwtpkg.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("token subject = %q, want admin", claims.Subject)
	}

	if _, err := svc.Login("admin", "wrong"); err == nil {
		t.Fatal("login with wrong password should fail")
	}
	if _, err := svc.Login("nobody", "hunter2"); err == nil {
		t.Fatal("login with wrong username should fail")
	}
}

func TestPlaintextPasswordIsDevOnly(t *testing.T) {
	dev := NewService(&config.AppConfig{
		Env:   "development",
		Admin: config.AdminConfig{Username: "admin", Password: "letmein"},
	})
	if _, err := dev.Login("admin", "letmein"); err != nil {
		t.Fatalf("dev plaintext login: %v", err)
	}

	prod := NewService(&config.AppConfig{
		Env:   "production",
		Admin: config.AdminConfig{Username: "admin", Password: "letmein"},
	})
	if _, err := prod.Login("admin", "letmein"); err == nil {
		t.Fatal("plaintext credential must not work in production")
	}
}

func TestLoginWithoutConfiguredAdmin(t *testing.T) {
	svc := NewService(&config.AppConfig{})
	if _, err := svc.Login("", ""); err == nil {
		t.Fatal("empty admin config should reject every login")
	}
}
