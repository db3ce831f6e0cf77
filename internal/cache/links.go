package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/martinhantha/kutt/internal/domain"
	"github.com/martinhantha/kutt/internal/metrics"
)

const (
	// DefaultLinkTTL is how long a link snapshot stays cached
	DefaultLinkTTL = 15 * time.Minute

	linkKeyPrefix = "l:"
)

// LinkKey derives the cache key of a link from its address and domain
func LinkKey(address string, domainID *int64) string {
	domainPart := ""
	if domainID != nil {
		domainPart = strconv.FormatInt(*domainID, 10)
	}
	return linkKeyPrefix + address + ":" + domainPart
}

// Links caches serialized link snapshots on top of a Store.
// Every method is best-effort: backend failures are logged and counted, never returned.
type Links struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewLinks creates a link cache over store. A non-positive ttl selects DefaultLinkTTL.
func NewLinks(store Store, ttl time.Duration, logger *slog.Logger) *Links {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Links{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// TTL returns the lifetime applied to cached snapshots
func (l *Links) TTL() time.Duration {
	return l.ttl
}

// Get returns the cached link for (address, domainID). The boolean is false on a
// miss and on any failure; a false result never means the link does not exist.
func (l *Links) Get(ctx context.Context, address string, domainID *int64) (*domain.Link, bool) {
	key := LinkKey(address, domainID)

	data, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			l.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}

	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		metrics.CacheErrors.WithLabelValues("decode").Inc()
		l.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		l.delete(ctx, key)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	metrics.CacheHits.Inc()
	return &link, true
}

// Put caches a snapshot of link under the key derived from its own address and domain
func (l *Links) Put(ctx context.Context, link *domain.Link) {
	if link == nil {
		return
	}
	key := LinkKey(link.Address, link.DomainID)

	data, err := json.Marshal(link)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("encode").Inc()
		l.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}

	if err := l.store.Set(ctx, key, data, l.ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		l.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

// Evict removes the cached snapshots of links. Duplicate keys are removed once.
func (l *Links) Evict(ctx context.Context, links ...*domain.Link) {
	keys := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		if link == nil {
			continue
		}
		key := LinkKey(link.Address, link.DomainID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}

	if l.delete(ctx, keys...) {
		metrics.CacheEvictions.Add(float64(len(keys)))
	}
}

// Flush drops every cached link and returns how many entries were removed
func (l *Links) Flush(ctx context.Context) int {
	n, err := l.store.Purge(ctx, linkKeyPrefix)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("purge").Inc()
		l.logger.WarnContext(ctx, "cache flush failed", "error", err)
	}
	return n
}

// Close closes the underlying store
func (l *Links) Close() error {
	return l.store.Close()
}

func (l *Links) delete(ctx context.Context, keys ...string) bool {
	if err := l.store.Delete(ctx, keys...); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		l.logger.WarnContext(ctx, "cache delete failed", "keys", keys, "error", err)
		return false
	}
	return true
}
