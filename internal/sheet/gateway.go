package sheet

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached worksheet matrix may get.  Five
// seconds is short enough that query results track workbook edits, and long
// enough to absorb bursts of reads without hammering the API quota.
const DefaultCacheTTL = 5 * time.Second

type cacheEntry struct {
	values  [][]string
	fetched time.Time
}

// Gateway is the process-wide handle to the workbook.  It caches full-matrix
// reads per worksheet under a short TTL, serves header-name→column lookups,
// and invalidates the affected worksheet's cache after every write.  A single
// Gateway is shared by all requests; the mutex only guards the cache map,
// never a remote call.
type Gateway struct {
	api API
	ttl time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewGateway wraps an API with caching.  ttl <= 0 selects DefaultCacheTTL.
func NewGateway(api API, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Gateway{api: api, ttl: ttl, cache: map[string]cacheEntry{}}
}

// Values returns the worksheet's full cell matrix, served from cache when the
// cached copy is younger than the TTL.  Callers must not mutate the result.
func (g *Gateway) Values(ctx context.Context, worksheet string) ([][]string, error) {
	g.mu.Lock()
	if e, ok := g.cache[worksheet]; ok && time.Since(e.fetched) < g.ttl {
		g.mu.Unlock()
		return e.values, nil
	}
	g.mu.Unlock()

	values, err := g.api.Values(ctx, worksheet)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.cache[worksheet] = cacheEntry{values: values, fetched: time.Now()}
	g.mu.Unlock()
	return values, nil
}

// ReadRow reads a single row straight from the workbook, bypassing the
// cache.  The capacity poll depends on this seeing formula recomputation.
func (g *Gateway) ReadRow(ctx context.Context, worksheet string, row int) ([]string, error) {
	return g.api.ReadRow(ctx, worksheet, row)
}

// HeaderMap builds a name→1-based-column map from the given header row.
// Header names are matched after trimming; empty cells are skipped.
func (g *Gateway) HeaderMap(ctx context.Context, worksheet string, headerRow int) (map[string]int, error) {
	values, err := g.Values(ctx, worksheet)
	if err != nil {
		return nil, err
	}
	m := map[string]int{}
	if headerRow <= 0 || headerRow > len(values) {
		return m, nil
	}
	for i, name := range values[headerRow-1] {
		name = strings.TrimSpace(name)
		if name != "" {
			m[name] = i + 1
		}
	}
	return m, nil
}

// Append adds a row to the worksheet and invalidates its cache.
func (g *Gateway) Append(ctx context.Context, worksheet string, row []interface{}) error {
	if err := g.api.Append(ctx, worksheet, row); err != nil {
		return err
	}
	g.Invalidate(worksheet)
	return nil
}

// Update writes one cell and invalidates the worksheet's cache.
func (g *Gateway) Update(ctx context.Context, worksheet string, row, col int, value interface{}) error {
	if err := g.api.Update(ctx, worksheet, row, col, value); err != nil {
		return err
	}
	g.Invalidate(worksheet)
	return nil
}

// BatchUpdate applies a set of cell writes and invalidates the cache.
func (g *Gateway) BatchUpdate(ctx context.Context, worksheet string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := g.api.BatchUpdate(ctx, worksheet, updates); err != nil {
		return err
	}
	g.Invalidate(worksheet)
	return nil
}

// Invalidate drops the cached matrix for a worksheet.
func (g *Gateway) Invalidate(worksheet string) {
	g.mu.Lock()
	delete(g.cache, worksheet)
	g.mu.Unlock()
}
