// Package auth validates bearer tokens issued by the platform's UAA against
// its RSA verification key, and looks up the organizations of a token holder.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrInvalidKey         = errors.New("invalid verification key")
)

// Claims are the UAA token claims the service relies on.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string   `json:"user_id"`
	UserName string   `json:"user_name,omitempty"`
	Scope    []string `json:"scope,omitempty"`
}

// Principal returns the user id, falling back to the sub claim.
func (c *Claims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// VerifierConfig holds configuration for the token verifier.
type VerifierConfig struct {
	// PublicKeyPEM is the PEM-encoded RSA public key tokens are signed with.
	PublicKeyPEM string

	// Issuer, when set, must match the iss claim.
	Issuer string

	// Audience, when set, must be contained in the aud claim.
	Audience string
}

// Verifier validates RS256 access tokens.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

// NewVerifier parses the verification key and builds a verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{key: key, parser: jwt.NewParser(opts...)}, nil
}

// ValidateAccessToken validates a token and returns its claims.
func (v *Verifier) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Principal() == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
