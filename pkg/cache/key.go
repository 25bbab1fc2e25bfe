package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached storefront list response.
type Key struct {
	// Endpoint is the list endpoint path (e.g., "products").
	Endpoint string

	// Query are the serialized list parameters. Repeated keys keep every
	// value so two requests with different filter sets never collide.
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: storefront:endpoint:key=v1,v2:key2=v
func (k Key) String() string {
	parts := []string{"storefront"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
