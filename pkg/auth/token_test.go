package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "partnerhub"}
}

func TestMintAndParseIdentityToken(t *testing.T) {
	cfg := testJWTConfig()
	partnerID := uuid.New()
	payload := IdentityPayload{UserID: uuid.New(), Role: enums.UserRolePartner, PartnerID: &partnerID}

	token, err := MintIdentityToken(cfg, time.Now(), time.Hour, payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseIdentityToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != payload.UserID || claims.Role != enums.UserRolePartner {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.PartnerID == nil || *claims.PartnerID != partnerID {
		t.Fatalf("partner id not round-tripped")
	}
}

func TestParseIdentityTokenRejectsBadTokens(t *testing.T) {
	cfg := testJWTConfig()
	payload := IdentityPayload{UserID: uuid.New(), Role: enums.UserRoleManager}

	expired, err := MintIdentityToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseIdentityToken(cfg, expired); err == nil {
		t.Fatal("expired token should be rejected")
	}

	token, err := MintIdentityToken(cfg, time.Now(), time.Hour, payload)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseIdentityToken(config.JWTConfig{Secret: "other", Issuer: cfg.Issuer}, token); err == nil {
		t.Fatal("wrong secret should be rejected")
	}
	if _, err := ParseIdentityToken(config.JWTConfig{Secret: cfg.Secret, Issuer: "someone-else"}, token); err == nil {
		t.Fatal("wrong issuer should be rejected")
	}

	partnerless, err := MintIdentityToken(cfg, time.Now(), time.Hour, IdentityPayload{UserID: uuid.New(), Role: enums.UserRolePartner})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseIdentityToken(cfg, partnerless); err == nil {
		t.Fatal("partner token without partner id should be rejected")
	}
}

func TestMintIdentityTokenValidatesInput(t *testing.T) {
	if _, err := MintIdentityToken(config.JWTConfig{}, time.Now(), time.Hour, IdentityPayload{Role: enums.UserRoleAdmin}); err == nil {
		t.Fatal("missing secret should fail")
	}
	if _, err := MintIdentityToken(testJWTConfig(), time.Now(), time.Hour, IdentityPayload{Role: "root"}); err == nil {
		t.Fatal("unknown role should fail")
	}
	if _, err := MintIdentityToken(testJWTConfig(), time.Now(), 0, IdentityPayload{Role: enums.UserRoleAdmin}); err == nil {
		t.Fatal("zero ttl should fail")
	}
}
