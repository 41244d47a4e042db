package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token the directory did not sign or that has expired.
var ErrInvalidToken = errors.New("invalid token")

// JWTResolver resolves HS256 access tokens minted by the identity directory.
// The role and affiliation travel as custom claims; the subject is the actor ID.
type JWTResolver struct {
	secret string
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: secret, issuer: issuer}
}

var _ portssvc.ActorResolver = (*JWTResolver)(nil)

func (r *JWTResolver) ResolveActor(_ context.Context, token string) (domain.Actor, error) {
	claims, err := utils.ParseAndValidateJWT(token, r.secret, r.issuer)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Actor{}, fmt.Errorf("%w: token has expired", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return domain.Actor{}, fmt.Errorf("%w: token not valid yet", ErrInvalidToken)
		}
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if (role == domain.RoleMunicipal || role == domain.RoleHospital) && claims.Affiliation == "" {
		return domain.Actor{}, fmt.Errorf("%w: %s token without affiliation", ErrInvalidToken, role)
	}

	return domain.Actor{ID: claims.Subject, Role: role, Affiliation: claims.Affiliation}, nil
}
