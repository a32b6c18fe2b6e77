package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Cache memoises contract metadata (provider wallets, fees, vault tables).
// Each (contract address, key) entry is loaded at most once per process;
// a failed load leaves the entry empty so the next caller retries.
type Cache struct {
	mu      sync.Mutex
	entries map[ethcommon.Address]map[string]*entry
	logger  zerolog.Logger
}

type entry struct {
	mu       sync.Mutex
	loaded   bool
	value    interface{}
	loadedAt time.Time
}

type slotRef struct {
	contract ethcommon.Address
	key      string
	e        *entry
}

// EntryInfo describes a loaded entry.
type EntryInfo struct {
	Contract ethcommon.Address `json:"contract"`
	Key      string            `json:"key"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// New creates a new Cache instance.
func New(logger zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[ethcommon.Address]map[string]*entry),
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

func (c *Cache) slot(contract ethcommon.Address, key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.entries[contract]
	if !ok {
		byKey = make(map[string]*entry)
		c.entries[contract] = byKey
	}
	e, ok := byKey[key]
	if !ok {
		e = &entry{}
		byKey[key] = e
	}
	return e
}

// GetOrLoad returns the cached value, calling load on first use. Concurrent
// callers for the same entry wait for a single load.
func (c *Cache) GetOrLoad(contract ethcommon.Address, key string, load func() (interface{}, error)) (interface{}, error) {
	e := c.slot(contract, key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return e.value, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	e.value = v
	e.loaded = true
	e.loadedAt = time.Now()

	c.logger.Debug().
		Str("contract", contract.Hex()).
		Str("key", key).
		Msg("cache entry loaded")
	return v, nil
}

// Load is the typed form of GetOrLoad.
func Load[T any](c *Cache, contract ethcommon.Address, key string, load func() (T, error)) (T, error) {
	v, err := c.GetOrLoad(contract, key, func() (interface{}, error) { return load() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s/%s holds %T", contract.Hex(), key, v)
	}
	return typed, nil
}

// Invalidate drops every entry of contract.
func (c *Cache) Invalidate(contract ethcommon.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, contract)
}

// Entries lists loaded entries ordered by contract then key.
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	var slots []slotRef
	for contract, byKey := range c.entries {
		for key, e := range byKey {
			slots = append(slots, slotRef{contract: contract, key: key, e: e})
		}
	}
	c.mu.Unlock()

	out := make([]EntryInfo, 0, len(slots))
	for _, s := range slots {
		s.e.mu.Lock()
		if s.e.loaded {
			out = append(out, EntryInfo{Contract: s.contract, Key: s.key, LoadedAt: s.e.loadedAt})
		}
		s.e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Contract != out[j].Contract {
			return out[i].Contract.Hex() < out[j].Contract.Hex()
		}
		return out[i].Key < out[j].Key
	})
	return out
}
