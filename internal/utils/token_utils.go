package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims are the claims the identity directory puts in an access token.
type ActorClaims struct {
	Role        string `json:"role"`
	Affiliation string `json:"affiliation,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT generates a new access token for an actor. The identity
// directory owns token minting; this is used by tooling and tests.
func GenerateJWT(actorID, role, affiliation string, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role:        role,
		Affiliation: affiliation,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAndValidateJWT parses a token string, validates its signature and
// standard claims, and returns the actor claims.
func ParseAndValidateJWT(tokenString string, secretKey string, issuer string) (*ActorClaims, error) {
	claims := &ActorClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}
