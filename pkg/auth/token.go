package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintIdentityToken signs a token the way the session provider does. The API
// never issues tokens itself; this exists for local tooling and tests.
func MintIdentityToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, payload IdentityPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	claims := IdentityClaims{
		UserID:    payload.UserID,
		Role:      payload.Role,
		PartnerID: payload.PartnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseIdentityToken validates signature, issuer and expiry and returns the
// typed claims.
func ParseIdentityToken(cfg config.JWTConfig, tokenString string) (*IdentityClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token missing user id")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	if claims.Role == enums.UserRolePartner && claims.PartnerID == nil {
		return nil, fmt.Errorf("partner token missing partner id")
	}
	return claims, nil
}
