package cache

import (
	"strings"
	"time"
)

const (
	defaultSecretTTL  = 5 * time.Minute
	defaultMissingTTL = time.Minute
)

// NASSecret is a cached nas table lookup. Found is false when the NAS has
// no row and the default secret applies.
type NASSecret struct {
	Secret string
	Found  bool
}

// NASSecretCache stores shared-secret lookups for disconnect requests so a
// batch of expirations does not hit the nas table once per session.
type NASSecretCache interface {
	Get(nasAddress string) (NASSecret, bool)
	Set(nasAddress string, secret NASSecret)
}

type nasSecretCache struct {
	secrets    Cache[string, NASSecret]
	secretTTL  time.Duration
	missingTTL time.Duration
}

func NewNASSecretCache() NASSecretCache {
	return &nasSecretCache{
		secrets:    NewTTLCache[string, NASSecret](),
		secretTTL:  defaultSecretTTL,
		missingTTL: defaultMissingTTL,
	}
}

func (c *nasSecretCache) Get(nasAddress string) (NASSecret, bool) {
	return c.secrets.Get(cacheKey(nasAddress))
}

func (c *nasSecretCache) Set(nasAddress string, secret NASSecret) {
	key := cacheKey(nasAddress)
	if key == "" {
		return
	}
	ttl := c.secretTTL
	if !secret.Found {
		ttl = c.missingTTL
	}
	c.secrets.Set(key, secret, ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
