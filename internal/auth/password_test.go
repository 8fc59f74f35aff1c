package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Hash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "valid password",
			password: "validpassword123",
			wantErr:  nil,
		},
		{
			name:     "password at maximum length",
			password: strings.Repeat("a", 72),
			wantErr:  nil,
		},
		{
			name:     "password too long",
			password: strings.Repeat("a", 73),
			wantErr:  ErrPasswordTooLong,
		},
	}

	hasher := NewBcryptHasher(bcrypt.MinCost)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Hash() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && hash == "" {
				t.Error("Hash() returned empty hash for valid password")
			}
		})
	}
}

func TestBcryptHasher_SaltedDigests(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	a, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if a == b {
		t.Error("Two hashes of the same password should differ")
	}
	if a == "secret1" {
		t.Error("Digest must not equal the plaintext")
	}
}

func TestBcryptHasher_Verify(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := "testpassword123"
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	tests := []struct {
		name     string
		password string
		digest   string
		want     bool
		wantErr  error
	}{
		{
			name:     "correct password",
			password: password,
			digest:   hash,
			want:     true,
		},
		{
			name:     "incorrect password",
			password: "wrongpassword",
			digest:   hash,
			want:     false,
		},
		{
			name:     "empty password",
			password: "",
			digest:   hash,
			want:     false,
		},
		{
			name:     "malformed digest",
			password: password,
			digest:   "not-a-bcrypt-hash",
			wantErr:  ErrHashing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hasher.Verify(tt.password, tt.digest)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewBcryptHasher_CostBounds(t *testing.T) {
	if got := NewBcryptHasher(0).Cost(); got != bcrypt.DefaultCost {
		t.Errorf("Cost() = %d, want default %d", got, bcrypt.DefaultCost)
	}
	if got := NewBcryptHasher(bcrypt.MaxCost + 1).Cost(); got != bcrypt.DefaultCost {
		t.Errorf("Cost() = %d, want default %d", got, bcrypt.DefaultCost)
	}
	if got := NewBcryptHasher(12).Cost(); got != 12 {
		t.Errorf("Cost() = %d, want 12", got)
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}

	// Secret should be 64 hex characters (32 bytes)
	if len(secret) != 64 {
		t.Errorf("Secret length = %d, want 64", len(secret))
	}

	secret2, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("Second GenerateSessionSecret() error = %v", err)
	}
	if secret == secret2 {
		t.Error("Generated secrets should be unique")
	}

	if len(DecodeSecret(secret)) != 32 {
		t.Error("DecodeSecret should decode a generated secret to 32 bytes")
	}
	if string(DecodeSecret("plain")) != "plain" {
		t.Error("DecodeSecret should pass non-hex secrets through")
	}
}
