package token

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	raw, err := s.Issue("job-123", "clip.mp4")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := s.Verify(raw)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.JobID != "job-123" {
		t.Errorf("unexpected job id: %s", claims.JobID)
	}
	if claims.OriginalName != "clip.mp4" {
		t.Errorf("unexpected original name: %s", claims.OriginalName)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewSigner(testSecret, time.Hour)
	verifier, _ := NewSigner([]byte("another-secret-of-32-bytes-xxxxx"), time.Hour)

	raw, err := issuer.Issue("job-123", "clip.mp4")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(raw); !errors.Is(err, ErrBadSignature) {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	// A signer with a negative ttl mints tokens that are already expired.
	s := &Signer{secret: testSecret, ttl: -time.Hour}

	raw, err := s.Issue("job-123", "clip.mp4")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	verifier, _ := NewSigner(testSecret, time.Hour)
	if _, err := verifier.Verify(raw); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s, _ := NewSigner(testSecret, time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := s.Verify(raw); err == nil {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestNewSignerRejectsWeakConfig(t *testing.T) {
	if _, err := NewSigner([]byte("short"), time.Hour); err == nil {
		t.Error("expected short secret to be rejected")
	}
	if _, err := NewSigner(testSecret, 0); err == nil {
		t.Error("expected zero ttl to be rejected")
	}
}
