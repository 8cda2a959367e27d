package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIssuer is the issuer claim of session tokens minted by this service.
const SessionIssuer = "usermanager"

// SessionClaims are the claims carried by a session JWT.
type SessionClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// IssueSessionToken creates a signed ES256 session token for userID in tenantID.
// signingKeyPEM is the PEM-encoded ECDSA private key.
func IssueSessionToken(signingKeyPEM, userID, tenantID string, ttl time.Duration) (string, error) {
	if userID == "" || tenantID == "" {
		return "", errors.New("user id and tenant id are required")
	}

	signingKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(signingKeyPEM))
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &SessionClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    SessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	return token.SignedString(signingKey)
}

// GenerateSessionKeyPair creates a P-256 key pair for signing session tokens.
// The private key is returned as an "EC PRIVATE KEY" PEM block and the public
// key as a "PUBLIC KEY" PEM block.
func GenerateSessionKeyPair() (privateKeyPEM, publicKeyPEM string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}

	privDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	privateKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER}))
	publicKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privateKeyPEM, publicKeyPEM, nil
}
