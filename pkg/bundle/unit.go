// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/qubernetes/q8s/pkg/types"
)

type (
	// Unit is one delivery unit. Units are values; the maps are owned by
	// the unit and must not be modified.
	Unit struct {
		// ID is a DNS-1123 label built from the name, the workload's
		// aggregate hash and Index.
		ID string
		// Index is the unit's position in the packaging result.
		Index int
		// Paths lists the relative paths of the unit's files in placement
		// order.
		Paths []string
		// Files maps relative paths to content.
		Files map[string][]byte
		// Keys maps relative paths to ConfigMap data keys. With content
		// deduplication several paths may share a key.
		Keys map[string]string
		// ContentHash digests every path, key and file hash of the unit.
		ContentHash types.ContentHash
		// Size is the number of content bytes stored under distinct keys.
		Size int64
	}

	// KeyPath projects one data key to a relative path, the shape of a
	// ConfigMap volume item.
	KeyPath struct {
		Key  string
		Path string
	}
)

// Data returns the content stored under each distinct data key.
func (u Unit) Data() map[string]string {
	data := make(map[string]string, len(u.Keys))
	for _, p := range u.Paths {
		key := u.Keys[p]
		if _, ok := data[key]; !ok {
			data[key] = string(u.Files[p])
		}
	}
	return data
}

// Items returns the key to path projections in placement order.
func (u Unit) Items() []KeyPath {
	items := make([]KeyPath, len(u.Paths))
	for i, p := range u.Paths {
		items[i] = KeyPath{Key: u.Keys[p], Path: p}
	}
	return items
}

// unitHash digests the placement of a unit's files.
func unitHash(paths []string, keys map[string]string, hashes map[string]types.ContentHash) types.ContentHash {
	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(keys[p]))
		h.Write([]byte{0})
		h.Write([]byte(hashes[p]))
		h.Write([]byte{'\n'})
	}
	return types.ContentHash(hex.EncodeToString(h.Sum(nil))) //goplint:ignore -- derived from sha256 digest
}
