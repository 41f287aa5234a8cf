package auth

import (
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation. The concrete cause is deliberately not exposed to callers.
var ErrInvalidToken = errors.New("invalid token")

// RoleAdmin marks staff tokens allowed to call moderation endpoints.
const RoleAdmin = "admin"

// Claims are the member identity claims carried by externally issued
// bearer tokens. Token issuance lives outside this service; we only verify.
type Claims struct {
	MemberID string `json:"memberId"`
	Role     string `json:"role"`
	Tier     string `json:"tier"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens against a shared secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a TokenVerifier for the given shared secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify parses and validates a bearer token, returning its claims.
// Tokens signed with any method other than HMAC are rejected.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.MemberID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
