// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"fmt"

	"github.com/qubernetes/q8s/pkg/types"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of scanned files a Cache keeps.
const DefaultCacheSize = 1024

// Cache memoizes extraction results by content hash so unchanged files are
// scanned once per process no matter how many builds read them. It is safe
// for concurrent use. Failed scans are not cached.
type Cache struct {
	entries *lru.Cache[types.ContentHash, []Reference]
}

// NewCache creates a Cache holding up to size entries.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[types.ContentHash, []Reference](size)
	if err != nil {
		return nil, fmt.Errorf("creating import cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Extract returns the references of src, whose digest is hash. The returned
// slice is shared with the cache and must not be modified.
func (c *Cache) Extract(hash types.ContentHash, src []byte) ([]Reference, error) {
	if refs, ok := c.entries.Get(hash); ok {
		return refs, nil
	}
	refs, err := ExtractAll(src)
	if err != nil {
		return nil, err
	}
	c.entries.Add(hash, refs)
	return refs, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.entries.Len() }
