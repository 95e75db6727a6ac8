package proposal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"nftswap/internal/model"
)

const DefaultFileName = ".nftswap-proposals.json"

// Key derives the cache key for a swap from data that is stable for the
// logical swap instance. Swap ids are recycled by the contract's slot
// reuse, so they cannot key the cache across its lifetime.
func Key(initiator common.Address, deadline uint64) string {
	return strings.ToLower(initiator.Hex()) + "_" + strconv.FormatUint(deadline, 10)
}

// Cache is the client-local store holding the structured request groups a
// counterparty submitted for a swap. The chain only records that a
// proposal was made; the full content lives here until the swap settles
// or is cancelled.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string][][]model.AssetRef
}

// record is the single namespaced JSON document written to disk.
type record struct {
	Proposals map[string][][]model.AssetRef `json:"swap_proposals"`
}

// Open loads the cache from path, creating an empty cache when no file
// exists yet. An empty path defaults to the home directory.
func Open(path string) (*Cache, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, DefaultFileName)
	}

	cache := &Cache{
		path:    path,
		entries: make(map[string][][]model.AssetRef),
	}
	if err := cache.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load proposal cache: %w", err)
		}
	}
	return cache, nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse proposal cache: %w", err)
	}
	if rec.Proposals != nil {
		c.entries = rec.Proposals
	}
	return nil
}

// save rewrites the whole record. Callers hold at least a read lock.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(record{Proposals: c.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal proposal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write cache tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

// Put stores all request groups for a key, replacing any prior entry.
func (c *Cache) Put(key string, groups [][]model.AssetRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = groups
	return c.save()
}

// Get returns the stored request groups for a key.
func (c *Cache) Get(key string) ([][]model.AssetRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups, ok := c.entries[key]
	return groups, ok
}

// Remove deletes the entry for a key. Removing an absent key is a no-op.
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.save()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SweepExpired removes entries whose embedded deadline plus grace period
// has passed. Entries with no deadline (deadline 0) are kept. It returns
// the removed keys.
func (c *Cache) SweepExpired(now uint64, grace uint64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for key := range c.entries {
		deadline, ok := deadlineFromKey(key)
		if !ok || deadline == 0 {
			continue
		}
		if now > deadline+grace {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, c.save()
}

func deadlineFromKey(key string) (uint64, bool) {
	idx := strings.LastIndexByte(key, '_')
	if idx < 0 {
		return 0, false
	}
	deadline, err := strconv.ParseUint(key[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return deadline, true
}

// FilePath returns the backing file path.
func (c *Cache) FilePath() string {
	return c.path
}
