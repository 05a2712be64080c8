// Package archive persists scan exports to local disk or S3-compatible
// object storage.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/momentum/internal/core"
)

// Storage is a flat key/value blob store. Keys use forward slashes.
type Storage interface {
	// Write stores data at the given key
	Write(ctx context.Context, key string, data []byte) error
	// Read retrieves data from the given key
	Read(ctx context.Context, key string) ([]byte, error)
	// List returns all keys under the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the data at the given key
	Delete(ctx context.Context, key string) error
	// Exists checks if data exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// cleanKey normalizes a key and rejects ones that escape the root.
func cleanKey(key string) (string, error) {
	slashed := strings.ReplaceAll(key, "\\", "/")
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("archive key %q escapes root", key))
		}
	}
	k := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if k == "" {
		return "", core.WrapError(core.ErrInvalidInput, fmt.Errorf("empty archive key %q", key))
	}
	return k, nil
}
