package local

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/survivalcamp/cache/kv"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = kv.ErrNotFound

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// ScoredMember is one sorted-set entry.
type ScoredMember = kv.ScoredMember

type entry struct {
	data     string
	expireAt time.Time
	noExpiry bool
}

func (e *entry) expired() bool {
	return !e.noExpiry && time.Now().After(e.expireAt)
}

func newEntry(value string, ttl time.Duration) *entry {
	e := &entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	} else {
		e.noExpiry = true
	}
	return e
}

// LocalCache is the in-process cache used when no Redis address is configured.
type LocalCache struct {
	mu         sync.Mutex // serializes SetNX
	kv         sync.Map   // key → *entry
	sets       sync.Map   // key → *lockedSet
	zsets      sync.Map   // key → *zset
	lists      sync.Map   // key → *lockedList
	gcInterval time.Duration
	stopGC     chan struct{}
	stopOnce   sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine. Safe to call more than once.
func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.kv.Range(func(k, v any) bool {
				if e, ok := v.(*entry); ok && e.expired() {
					c.kv.Delete(k)
				}
				return true
			})
		case <-c.stopGC:
			return
		}
	}
}

// ---- KV ----

func (c *LocalCache) load(key string) (*entry, bool) {
	v, ok := c.kv.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if e.expired() {
		c.kv.Delete(key)
		return nil, false
	}
	return e, true
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	e, ok := c.load(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.kv.Store(key, newEntry(value, ttl))
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.kv.Delete(k)
		c.sets.Delete(k)
		c.zsets.Delete(k)
		c.lists.Delete(k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.load(key)
	return ok, nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.load(key); ok {
		return false, nil
	}
	c.kv.Store(key, newEntry(value, ttl))
	return true, nil
}

// ---- Set ----

type lockedSet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

func (c *LocalCache) getOrCreateSet(key string) *lockedSet {
	v, _ := c.sets.LoadOrStore(key, &lockedSet{members: make(map[string]struct{})})
	return v.(*lockedSet)
}

func (c *LocalCache) SAdd(_ context.Context, key string, members ...string) error {
	s := c.getOrCreateSet(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.members[m] = struct{}{}
	}
	return nil
}

func (c *LocalCache) SRem(_ context.Context, key string, members ...string) error {
	s := c.getOrCreateSet(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.members, m)
	}
	return nil
}

func (c *LocalCache) SMembers(_ context.Context, key string) ([]string, error) {
	s := c.getOrCreateSet(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.members))
	for m := range s.members {
		result = append(result, m)
	}
	sort.Strings(result)
	return result, nil
}

// ---- ZSet ----

type zset struct {
	mu      sync.Mutex
	entries []ScoredMember // score descending, ties by member
}

func (z *zset) sort() {
	sort.Slice(z.entries, func(a, b int) bool {
		if z.entries[a].Score != z.entries[b].Score {
			return z.entries[a].Score > z.entries[b].Score
		}
		return z.entries[a].Member > z.entries[b].Member
	})
}

func (c *LocalCache) getOrCreateZSet(key string) *zset {
	v, _ := c.zsets.LoadOrStore(key, &zset{})
	return v.(*zset)
}

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	for i, e := range z.entries {
		if e.Member == member {
			z.entries[i].Score = score
			z.sort()
			return nil
		}
	}
	z.entries = append(z.entries, ScoredMember{Member: member, Score: score})
	z.sort()
	return nil
}

// ZRevRangeWithScores returns entries start..stop (inclusive) ordered by score
// descending. A negative stop means the end of the set.
func (c *LocalCache) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	lo, hi, ok := clampRange(int64(len(z.entries)), start, stop)
	if !ok {
		return nil, nil
	}
	result := make([]ScoredMember, hi-lo+1)
	copy(result, z.entries[lo:hi+1])
	return result, nil
}

func (c *LocalCache) ZRem(_ context.Context, key string, members ...string) error {
	z := c.getOrCreateZSet(key)
	z.mu.Lock()
	defer z.mu.Unlock()
	drop := make(map[string]struct{}, len(members))
	for _, m := range members {
		drop[m] = struct{}{}
	}
	kept := z.entries[:0]
	for _, e := range z.entries {
		if _, ok := drop[e.Member]; !ok {
			kept = append(kept, e)
		}
	}
	z.entries = kept
	return nil
}

// ---- List ----

type lockedList struct {
	mu   sync.Mutex
	data []string
}

func (c *LocalCache) getOrCreateList(key string) *lockedList {
	v, _ := c.lists.LoadOrStore(key, &lockedList{})
	return v.(*lockedList)
}

func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	// last value ends up at index 0
	for _, v := range values {
		l.data = append([]string{v}, l.data...)
	}
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := clampRange(int64(len(l.data)), start, stop)
	if !ok {
		return nil, nil
	}
	result := make([]string, hi-lo+1)
	copy(result, l.data[lo:hi+1])
	return result, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	l := c.getOrCreateList(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	lo, hi, ok := clampRange(int64(len(l.data)), start, stop)
	if !ok {
		l.data = nil
		return nil
	}
	l.data = l.data[lo : hi+1]
	return nil
}

func clampRange(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = 0
	}
	if start >= n {
		return 0, 0, false
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if stop < start {
		return 0, 0, false
	}
	return start, stop, true
}
