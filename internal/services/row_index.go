package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fhtally/internal/cache"
	"fhtally/internal/core"
	"fhtally/internal/sheets"
)

// rowMap maps a (month, category) key to its 1-based sheet row.
type rowMap map[core.RowKey]int

const reportIndexKey = "report"

// RowIndex resolves (month, category) to a report row without scanning the
// sheet on every delivery. The map is rebuilt when it expires, and once more
// when a key is missing, so rows added by hand become visible.
type RowIndex struct {
	loader *cache.Loader[rowMap]
	store  *cache.TTLCache[rowMap]
	locks  sync.Map // RowKey -> *sync.Mutex

	builds    atomic.Int64
	refreshes atomic.Int64
	mu        sync.Mutex
	entries   int
	lastBuild time.Time
}

// IndexStats describes the row index for the metrics endpoint.
type IndexStats struct {
	Entries   int       `json:"entries"`
	Builds    int64     `json:"builds"`
	Refreshes int64     `json:"refreshes"`
	LastBuild time.Time `json:"last_build"`
	Cached    bool      `json:"cached"`
}

func NewRowIndex(reader sheets.ReportReader, ttl time.Duration) *RowIndex {
	ix := &RowIndex{store: cache.NewTTLCache[rowMap](1, ttl)}
	load := func(ctx context.Context, _ string) (rowMap, error) {
		rows, err := reader.ReportRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("build row index: %w", err)
		}
		m := buildRowMap(rows)
		ix.builds.Add(1)
		ix.mu.Lock()
		ix.entries = len(m)
		ix.lastBuild = time.Now()
		ix.mu.Unlock()
		return m, nil
	}
	ix.loader = cache.NewLoader[rowMap](ix.store, load)
	return ix
}

// buildRowMap keeps the first row for each key, matching a top-down scan.
func buildRowMap(rows []core.ReportRow) rowMap {
	m := make(rowMap, len(rows))
	for _, r := range rows {
		k := r.Key()
		if k.Month == "" || k.Category == "" {
			continue
		}
		if _, seen := m[k]; !seen {
			m[k] = r.Row
		}
	}
	return m
}

// Lookup returns the row for key. The bool is false when the sheet has no
// such row even after a fresh read.
func (ix *RowIndex) Lookup(ctx context.Context, key core.RowKey) (int, bool, error) {
	m, hit, err := ix.loader.Get(ctx, reportIndexKey)
	if err != nil {
		return 0, false, err
	}
	if row, ok := m[key]; ok {
		return row, true, nil
	}
	if !hit {
		return 0, false, nil
	}
	return ix.Refresh(ctx, key)
}

// Refresh rereads the sheet and resolves key against the new map. The ledger
// calls it when the cached row no longer holds the key.
func (ix *RowIndex) Refresh(ctx context.Context, key core.RowKey) (int, bool, error) {
	ix.refreshes.Add(1)
	m, err := ix.loader.Refresh(ctx, reportIndexKey)
	if err != nil {
		return 0, false, err
	}
	row, ok := m[key]
	return row, ok, nil
}

func (ix *RowIndex) Stats() IndexStats {
	_, cached := ix.store.Get(reportIndexKey)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return IndexStats{
		Entries:   ix.entries,
		Builds:    ix.builds.Load(),
		Refreshes: ix.refreshes.Load(),
		LastBuild: ix.lastBuild,
		Cached:    cached,
	}
}

// Warm loads the map if it is not cached, so readiness reflects whether the
// report sheet can be read.
func (ix *RowIndex) Warm(ctx context.Context) error {
	_, _, err := ix.loader.Get(ctx, reportIndexKey)
	return err
}

// Invalidate drops the cached map; the next lookup reads the sheet again.
func (ix *RowIndex) Invalidate() {
	ix.loader.Invalidate(reportIndexKey)
}

// Cache exposes the backing cache so it can be swept by a cache.Manager.
func (ix *RowIndex) Cache() cache.Cleaner {
	return ix.store
}

// lock returns the mutex serializing updates of key's count cell.
func (ix *RowIndex) lock(key core.RowKey) *sync.Mutex {
	mu, _ := ix.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
