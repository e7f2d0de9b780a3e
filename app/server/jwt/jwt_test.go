package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse_Success(t *testing.T) {
	t.Parallel()

	j, err := New("super-secret")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	tok, err := j.Sign(42, TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	claims, err := j.Parse(tok, TypeAccess)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID mismatch: got %d want 42", claims.UserID)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("TokenType mismatch: got %q want %q", claims.TokenType, TypeAccess)
	}
}

func TestParse_TypeConfusion(t *testing.T) {
	t.Parallel()

	j, _ := New("super-secret")

	// 刷新令牌不能被当作访问令牌使用
	refresh, err := j.Sign(1, TypeRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if _, err = j.Parse(refresh, TypeAccess); !errors.Is(err, ErrUnexpectedTokenType) {
		t.Fatalf("expected ErrUnexpectedTokenType, got %v", err)
	}

	// 反过来也一样
	access, err := j.Sign(1, TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if _, err = j.Parse(access, TypeRefresh); !errors.Is(err, ErrUnexpectedTokenType) {
		t.Fatalf("expected ErrUnexpectedTokenType, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	j, _ := New("secret")

	tok, err := j.Sign(1, TypeAccess, -1*time.Second)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	if _, err = j.Parse(tok, TypeAccess); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	signer, _ := New("right-secret")
	verifier, _ := New("wrong-secret")

	tok, err := signer.Sign(1, TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	if _, err = verifier.Parse(tok, TypeAccess); err == nil {
		t.Fatal("expected error for invalid signature, got nil")
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	j, _ := New("k")

	if _, err := j.Parse("not.a.jwt", TypeAccess); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
	if _, err := j.Parse("", TypeAccess); err == nil {
		t.Fatal("expected error for empty token, got nil")
	}
}

func TestNew_EmptyKey(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty key, got nil")
	}
}
