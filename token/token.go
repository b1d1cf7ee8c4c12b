package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrInvalidToken = errors.New("invalid token format")
	ErrTokenExpired = errors.New("token has expired")
	ErrBadSignature = errors.New("invalid token signature")
)

// Claims is the payload of a download token. The job id is the only
// server-side lookup key; the original name rides along so the download
// response can be built without extra state.
type Claims struct {
	JobID        string `json:"sub"`
	OriginalName string `json:"orig"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// Signer issues and verifies one-shot download tokens with HS256.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a signer. The secret must be at least 32 bytes.
func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Signer{secret: secret, ttl: ttl}, nil
}

// Issue creates a signed token for a job.
func (s *Signer) Issue(jobID, originalName string) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: s.secret}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}

	now := time.Now()
	claims := Claims{
		JobID:        jobID,
		OriginalName: originalName,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(s.ttl).Unix(),
	}

	raw, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the signature and expiry of a raw token and returns its
// claims. Callers treat every failure here as a missing artifact: an
// expired token is indistinguishable from a consumed one.
func (s *Signer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{}
	if err := tok.Claims(s.secret, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if claims.ExpiresAt > 0 && claims.ExpiresAt < time.Now().Unix() {
		return nil, ErrTokenExpired
	}
	if claims.JobID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
