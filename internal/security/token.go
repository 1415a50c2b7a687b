package security

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 30 * time.Minute

// TokenIssuer builds and signs identity tokens with a symmetric key, and
// validates presented tokens for the auth middleware.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenIssuer creates a TokenIssuer. A missing signing secret is a
// configuration error the caller should treat as fatal at startup.
func NewTokenIssuer(secret, issuer, audience string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("JWT signing secret is not configured")
	}
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      TokenTTL,
	}, nil
}

// Issue signs a token asserting the given identity. The claim set carries the
// subject email, a unique token ID, the user's ID and display name, and the
// configured issuer/audience with a short expiry.
func (t *TokenIssuer) Issue(subjectEmail, subjectID, displayName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subjectEmail,
		"jti":  uuid.New().String(),
		"uid":  subjectID,
		"name": displayName,
		"iss":  t.issuer,
		"aud":  t.audience,
		"iat":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	})

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Validate parses and validates a token, returning the claims if the
// signature checks out and the token has not expired.
func (t *TokenIssuer) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
