// Package cache stores computed distribution results. A distribution is a
// pure function of (expression, limits), so cached entries never go stale on
// their own; TTLs only bound memory growth.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/d20dist/internal/engine"
)

// Store is the result cache abstraction. Implementations MUST be safe for
// concurrent use. A miss is (nil, false, nil); errors are reserved for
// transport failures.
type Store interface {
	// Get returns the cached value for key, if present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds the cache key for a notation string under the given limits.
// Whitespace is stripped and the notation lowercased so trivially different
// spellings of the same expression share an entry; the limits are part of
// the key because they change which expressions are computable.
func Key(notation string, lim engine.Limits) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(notation), ""))
	return fmt.Sprintf("dist:%d:%d:%g:%s", lim.Convolution, lim.Enumeration, lim.ExplodeEpsilon, normalized)
}
