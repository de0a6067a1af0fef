package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LinkFilterConfig configures the Redis-backed link filter.
type LinkFilterConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	// KeyPrefix is combined with the org id, one filter per tenant.
	KeyPrefix string
	TTL       time.Duration
	// Capacity sets the initial BF.RESERVE capacity (number of items).
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001).
	ErrorRate float64
}

// LinkFilter is a per-tenant probabilistic set of canonical links,
// backed by RedisBloom. A hit is only a hint; callers must confirm
// against the store before treating it as a duplicate.
type LinkFilter struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	capacity  int
	errorRate float64
}

// NewLinkFilter creates a LinkFilter and verifies connectivity.
func NewLinkFilter(cfg LinkFilterConfig) (*LinkFilter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "curator:links"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = 100000
	}
	if cfg.ErrorRate == 0 {
		cfg.ErrorRate = 0.001
	}

	return &LinkFilter{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		capacity:  cfg.Capacity,
		errorRate: cfg.ErrorRate,
	}, nil
}

// Close closes the underlying Redis client.
func (f *LinkFilter) Close() error {
	return f.client.Close()
}

func (f *LinkFilter) key(orgID string) string {
	return f.keyPrefix + ":" + orgID
}

// Exists checks the tenant's filter for the normalized link.
func (f *LinkFilter) Exists(ctx context.Context, orgID, link string) (bool, error) {
	res, err := f.client.Do(ctx, "BF.EXISTS", f.key(orgID), hashLink(link)).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// Add inserts the normalized link into the tenant's filter, creating
// the filter with the configured capacity on first use, and refreshes
// the TTL so the filter stays alive after the most recent insert.
func (f *LinkFilter) Add(ctx context.Context, orgID, link string) error {
	key := f.key(orgID)

	exists, err := f.client.Exists(ctx, key).Result()
	if err == nil && exists == 0 {
		// BF.RESERVE <key> <error_rate> <capacity>; failure is
		// non-fatal since BF.ADD can auto-create the filter.
		_ = f.client.Do(ctx, "BF.RESERVE", key, fmt.Sprintf("%f", f.errorRate), f.capacity).Err()
	}

	if err := f.client.Do(ctx, "BF.ADD", key, hashLink(link)).Err(); err != nil {
		return err
	}
	return f.client.Expire(ctx, key, f.ttl).Err()
}

// hashLink normalizes a canonical link and returns a SHA-256 hex hash.
// Normalization: lowercase scheme and host, drop the fragment, strip
// common tracking query params, trim trailing slashes.
func hashLink(raw string) string {
	h := sha256.Sum256([]byte(NormalizeLink(raw)))
	return hex.EncodeToString(h[:])
}

// NormalizeLink canonicalizes a URL for exact-duplicate comparison.
func NormalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if strings.HasSuffix(out, "/") {
		out = strings.TrimRight(out, "/")
	}
	return out
}
