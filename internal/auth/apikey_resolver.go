package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/ids"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
)

// ErrUnknownAPIKey is returned when a secret does not match any stored key.
var ErrUnknownAPIKey = errors.New("unknown api key")

// APIKeyLookup is the subset of the store needed to resolve secrets.
type APIKeyLookup interface {
	GetAPIKeyBySecretHash(ctx context.Context, secretHash string) (*models.APIKey, error)
}

// APIKeyResolverConfig configures the resolver cache.
type APIKeyResolverConfig struct {
	// CacheSize is the number of resolved keys kept in memory. Default: 1024
	CacheSize int
	// CacheTTL bounds how long another replica may keep honouring a deleted key. Default: 30s
	CacheTTL time.Duration
}

// APIKeyResolver maps API key secrets to principals. Secrets are hashed before
// lookup; the plaintext is never stored or logged.
type APIKeyResolver struct {
	keys  APIKeyLookup
	cache *lru.LRU[string, *Principal]
}

// NewAPIKeyResolver creates a resolver backed by keys.
func NewAPIKeyResolver(keys APIKeyLookup, cfg APIKeyResolverConfig) *APIKeyResolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	return &APIKeyResolver{
		keys:  keys,
		cache: lru.NewLRU[string, *Principal](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Resolve returns the principal for secret.
func (r *APIKeyResolver) Resolve(ctx context.Context, secret string) (*Principal, error) {
	if !ids.IsSecret(secret) {
		return nil, ErrUnknownAPIKey
	}

	hash := ids.HashSecret(secret)
	if p, ok := r.cache.Get(hash); ok {
		cp := *p
		return &cp, nil
	}

	key, err := r.keys.GetAPIKeyBySecretHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return nil, ErrUnknownAPIKey
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	p := &Principal{
		UserID:                   key.UserID,
		TenantID:                 key.TenantID,
		Source:                   SourceAPIKey,
		APIKeyID:                 key.APIKeyID,
		IsServiceAccount:         key.IsServiceAccount,
		ExcludedFromRateLimiting: key.ExcludedFromRateLimiting,
	}
	r.cache.Add(hash, p)

	log.Debug().Str("api_key_id", key.APIKeyID).Msg("Resolved API key")

	cp := *p
	return &cp, nil
}

// APIKeyDeleted drops a revoked key from the cache so this replica stops
// accepting it immediately.
func (r *APIKeyResolver) APIKeyDeleted(key *models.APIKey) {
	r.cache.Remove(key.SecretHash)
}

// APIKeyUpdated drops the cached principal so flag changes apply on next use.
func (r *APIKeyResolver) APIKeyUpdated(key *models.APIKey) {
	r.cache.Remove(key.SecretHash)
}

// Purge empties the cache.
func (r *APIKeyResolver) Purge() {
	r.cache.Purge()
}
