package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/psysupport/psysupport-api/internal/models"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	candidateCacheName   = "candidates"
	candidateKeyPrefix   = "candidates:"
	cacheCleanupInterval = time.Minute
)

// CandidateSource is the uncached psychologist search
type CandidateSource interface {
	FindCandidates(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error)
}

// CandidateCache is a read-through cache of directory searches keyed by filter.
// Concurrent misses for the same filter share one query.
type CandidateCache struct {
	cache  *gocache.Cache
	source CandidateSource
	group  singleflight.Group
	ttl    time.Duration
}

// NewCandidateCache creates a cache whose entries live for ttlSeconds
func NewCandidateCache(source CandidateSource, ttlSeconds int) *CandidateCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CandidateCache{
		cache:  gocache.New(ttl, cacheCleanupInterval),
		source: source,
		ttl:    ttl,
	}
}

// Get returns cached candidates for the filter, querying the source on a miss
func (c *CandidateCache) Get(ctx context.Context, filter models.CandidateFilter) ([]*models.PsychologistCandidate, error) {
	key := filterKey(filter)

	if data, found := c.cache.Get(key); found {
		if candidates, ok := data.([]*models.PsychologistCandidate); ok {
			metrics.CacheHits.WithLabelValues(candidateCacheName).Inc()
			return candidates, nil
		}
		logger.Error("Invalid cache data type", zap.String("key", key))
		c.cache.Delete(key)
	}
	metrics.CacheMisses.WithLabelValues(candidateCacheName).Inc()

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		candidates, err := c.source.FindCandidates(ctx, filter)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, candidates, c.ttl)
		metrics.CacheSize.WithLabelValues(candidateCacheName).Set(float64(c.cache.ItemCount()))
		return candidates, nil
	})
	if err != nil {
		return nil, fmt.Errorf("candidate lookup failed: %w", err)
	}
	if shared {
		logger.Debug("Candidate lookup shared with concurrent request", zap.String("key", key))
	}

	return result.([]*models.PsychologistCandidate), nil
}

// Invalidate drops every cached search
func (c *CandidateCache) Invalidate() {
	c.cache.Flush()
	metrics.CacheSize.WithLabelValues(candidateCacheName).Set(0)
	logger.Info("Candidate cache invalidated")
}

// filterKey is stable for equal filters regardless of slice order or case
func filterKey(f models.CandidateFilter) string {
	var b strings.Builder
	b.WriteString(candidateKeyPrefix)
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Language)))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(f.WorkFormat)))
	b.WriteByte('|')
	if f.MaxPrice != nil {
		b.WriteString(strconv.FormatFloat(*f.MaxPrice, 'f', 2, 64))
	}
	b.WriteByte('|')
	ids := append([]int(nil), f.SpecializationIDs...)
	sort.Ints(ids)
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	fmt.Fprintf(&b, "|%t|%d|%d", f.OnlyVerified, f.Page, f.PageSize)
	return b.String()
}
