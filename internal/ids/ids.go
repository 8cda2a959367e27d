// Package ids generates resource identifiers and API key secrets.
package ids

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// Prefixes and random lengths for generated identifiers.
const (
	OrganizationPrefix = "org-"
	ProjectPrefix      = "proj_"
	APIKeyPrefix       = "key_"
	SecretPrefix       = "sk-"
	ServiceUserPrefix  = "sa-"

	organizationIDLen = 22
	projectIDLen      = 24
	apiKeyIDLen       = 16
	secretLen         = 48
)

// Generate returns prefix followed by n base58 characters read from crypto/rand.
func Generate(prefix string, n int) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	for sb.Len() < len(prefix)+n {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		sb.WriteString(base58.Encode(buf))
	}
	return sb.String()[:len(prefix)+n], nil
}

func NewOrganizationID() (string, error) { return Generate(OrganizationPrefix, organizationIDLen) }

func NewProjectID() (string, error) { return Generate(ProjectPrefix, projectIDLen) }

func NewAPIKeyID() (string, error) { return Generate(APIKeyPrefix, apiKeyIDLen) }

// NewSecret returns a fresh API key secret. The value must only ever be shown once.
func NewSecret() (string, error) { return Generate(SecretPrefix, secretLen) }

// NewInternalUserID returns a time ordered UUIDv7.
func NewInternalUserID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate internal user id: %w", err)
	}
	return id.String(), nil
}

// ServiceUserID is the id of the hidden user that owns a service account key.
func ServiceUserID(apiKeyID string) string {
	return strings.ToLower(ServiceUserPrefix + apiKeyID)
}

// HashSecret returns the hex sha256 of a secret, the only form in which secrets are stored.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ObfuscateSecret keeps the first five and last two characters and masks the rest.
func ObfuscateSecret(secret string) string {
	if len(secret) <= 7 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:5] + strings.Repeat("*", len(secret)-7) + secret[len(secret)-2:]
}

// IsSecret reports whether token looks like an API key secret rather than a JWT.
func IsSecret(token string) bool {
	return strings.HasPrefix(token, SecretPrefix)
}
