package cache

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces all cache keys in Redis.
const KeyPrefix = "catalog:list"

// Key identifies one upstream list window.
type Key struct {
	// Resource is the upstream collection (e.g. "pokemon")
	Resource string

	Limit  int
	Offset int
}

// String generates a deterministic Redis key.
//
// Example:
//
//	catalog:list:pokemon:limit=50:offset=150
func (k Key) String() string {
	resource := strings.Trim(k.Resource, "/")
	return fmt.Sprintf("%s:%s:limit=%d:offset=%d", KeyPrefix, resource, k.Limit, k.Offset)
}
