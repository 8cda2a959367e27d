package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/usermanager/internal/models"
)

// SessionVerifier validates session JWTs signed with ES256.
type SessionVerifier struct {
	publicKey *ecdsa.PublicKey
	parser    *jwt.Parser
}

// NewSessionVerifierFromPEM creates a verifier from a PEM-encoded ECDSA public key.
func NewSessionVerifierFromPEM(publicKeyPEM string) (*SessionVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	return &SessionVerifier{
		publicKey: publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
			jwt.WithIssuer(SessionIssuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify checks the token signature and claims and returns the session principal.
func (v *SessionVerifier) Verify(tokenString string) (*Principal, error) {
	claims := &SessionClaims{}
	parsed, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	if claims.TenantID == "" {
		return nil, errors.New("missing tenant_id claim")
	}

	return &Principal{
		UserID:   models.NormalizeUserID(claims.Subject),
		TenantID: claims.TenantID,
		Source:   SourceSession,
	}, nil
}
