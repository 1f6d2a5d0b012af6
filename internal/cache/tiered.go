package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/db"
)

// kv is the consumer interface for the second cache tier (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Config holds tiered cache sizing and expiry.
type Config struct {
	L1Capacity int           // max in-process entries (default 1024)
	L1TTL      time.Duration // in-process entry lifetime (default 1h)
	L2TTL      time.Duration // key-value store entry lifetime (default 7d)
	KeyPrefix  string        // namespace for second-tier keys
}

// ApplyDefaults fills zero fields with default sizing.
func (c *Config) ApplyDefaults() {
	if c.L1Capacity <= 0 {
		c.L1Capacity = 1024
	}
	if c.L1TTL <= 0 {
		c.L1TTL = time.Hour
	}
	if c.L2TTL <= 0 {
		c.L2TTL = 7 * 24 * time.Hour
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "retriever:emb_cache:"
	}
}

type l1Entry struct {
	vec       []float32
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of first-tier effectiveness.
type Stats struct {
	L1Hits    int64   `json:"l1_hits"`
	L1Misses  int64   `json:"l1_misses"`
	L1Size    int     `json:"l1_size"`
	L1HitRate float64 `json:"l1_hit_rate"`
}

// Tiered is a two-level embedding vector cache. The first tier is an
// in-process LRU with lazy per-entry expiry; the second is a shared
// key-value store. Reads promote second-tier values into the first
// tier. Second-tier failures degrade to a miss, never to an error.
type Tiered struct {
	l1         *lru.Cache[string, l1Entry]
	l2         kv
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	now        func() time.Time

	l1Hits   atomic.Int64
	l1Misses atomic.Int64
}

// NewTiered creates a tiered cache backed by the given key-value store.
// cacheTotal is a counter vec with labels "tier" and "result", passed
// explicitly. l2 may be nil, leaving only the in-process tier active.
func NewTiered(l2 kv, cfg Config, cacheTotal *prometheus.CounterVec, logger *zap.Logger) (*Tiered, error) {
	cfg.ApplyDefaults()
	l1, err := lru.New[string, l1Entry](cfg.L1Capacity)
	if err != nil {
		return nil, fmt.Errorf("create l1 cache: %w", err)
	}
	return &Tiered{
		l1:         l1,
		l2:         l2,
		cfg:        cfg,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Get returns the cached vector for the key, consulting the first tier
// and then the second. Expired first-tier entries are evicted on read.
func (t *Tiered) Get(ctx context.Context, key string) ([]float32, bool) {
	if entry, ok := t.l1.Get(key); ok {
		if t.now().Before(entry.expiresAt) {
			t.l1Hits.Add(1)
			t.inc("l1", "hit")
			return entry.vec, true
		}
		t.l1.Remove(key)
	}
	t.l1Misses.Add(1)
	t.inc("l1", "miss")

	if t.l2 == nil {
		return nil, false
	}

	data, err := t.l2.Get(ctx, t.l2Key(key))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			t.logger.Warn("Failed to read cache tier 2", zap.String("key", key), zap.Error(err))
		}
		t.inc("l2", "miss")
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		t.logger.Warn("Failed to decode cached vector", zap.String("key", key), zap.Error(err))
		t.inc("l2", "miss")
		return nil, false
	}
	t.inc("l2", "hit")

	t.l1.Add(key, l1Entry{vec: vec, expiresAt: t.now().Add(t.cfg.L1TTL)})
	return vec, true
}

// Put stores the vector in both tiers. Second-tier write failures are
// logged and absorbed so callers never fail on a cache write.
func (t *Tiered) Put(ctx context.Context, key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	t.l1.Add(key, l1Entry{vec: stored, expiresAt: t.now().Add(t.cfg.L1TTL)})

	if t.l2 == nil {
		return
	}
	if err := t.l2.SetWithTTL(ctx, t.l2Key(key), vectorToBytes(stored), t.cfg.L2TTL); err != nil {
		t.logger.Warn("Failed to write cache tier 2", zap.String("key", key), zap.Error(err))
	}
}

// Clear drops both tiers. Second-tier keys are removed by prefix scan.
func (t *Tiered) Clear(ctx context.Context) error {
	t.l1.Purge()
	t.l1Hits.Store(0)
	t.l1Misses.Store(0)

	if t.l2 == nil {
		return nil
	}
	keys, err := t.l2.Scan(ctx, t.cfg.KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	for _, key := range keys {
		if err := t.l2.Del(ctx, key); err != nil {
			return fmt.Errorf("delete cache key %q: %w", key, err)
		}
	}
	return nil
}

// Stats returns a first-tier effectiveness snapshot.
func (t *Tiered) Stats() Stats {
	hits := t.l1Hits.Load()
	misses := t.l1Misses.Load()
	s := Stats{
		L1Hits:   hits,
		L1Misses: misses,
		L1Size:   t.l1.Len(),
	}
	if total := hits + misses; total > 0 {
		s.L1HitRate = float64(hits) / float64(total)
	}
	return s
}

func (t *Tiered) l2Key(key string) string {
	return t.cfg.KeyPrefix + key
}

func (t *Tiered) inc(tier, result string) {
	if t.cacheTotal != nil {
		t.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
