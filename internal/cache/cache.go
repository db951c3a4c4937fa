// Package cache provides filesystem-based caching for transient server
// responses, primarily skip-segment lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/where"
)

const TTL = 7 * 24 * time.Hour

// GenerateKey generates a deterministic SHA-256 hash from an item and scope
// pair for use as a cache identifier.
func GenerateKey(itemID, scope string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(itemID, " ", "")) + scope
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Read attempts to retrieve and deserialize a cached object if it exists and
// has not exceeded its TTL.
func Read(key string, target interface{}) bool {
	path := filepath.Join(where.Cache(), key)

	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > TTL {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	if err := decoder.Decode(target); err != nil {
		return false
	}
	return true
}

// Write persists a serializable object to the cache using an atomic file
// swap to ensure data integrity.
func Write(key string, data interface{}) error {
	path := filepath.Join(where.Cache(), key)
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return os.Rename(tmpPath, path)
}

// CollectGarbage initializes an asynchronous background task to prune
// expired cache entries from the filesystem.
func CollectGarbage() {
	go func() {
		dir := where.Cache()
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil && time.Since(info.ModTime()) > TTL {
				_ = os.Remove(path)
			}
			return nil
		})
	}()
}
