package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"bookview/kvstore"
)

// DefaultLocationsBudget is content budget per page boundary.
const DefaultLocationsBudget = 1200

// pageTable is immutable once built.
type pageTable struct {
	locators []Locator
	pages    map[Locator]int
}

func newPageTable(locs []Locator, cmp Comparer) (*pageTable, error) {
	if len(locs) == 0 {
		return nil, errors.New("no page boundaries")
	}
	t := &pageTable{
		locators: make([]Locator, len(locs)),
		pages:    make(map[Locator]int, len(locs)),
	}
	copy(t.locators, locs)
	for i, l := range t.locators {
		if l.IsZero() {
			return nil, fmt.Errorf("empty locator at page %d", i)
		}
		if _, dup := t.pages[l]; dup {
			return nil, fmt.Errorf("duplicate locator %q at page %d", l, i)
		}
		if cmp != nil && i > 0 && cmp.Compare(t.locators[i-1], l) >= 0 {
			return nil, fmt.Errorf("locator %q at page %d is out of document order", l, i)
		}
		t.pages[l] = i
	}
	return t, nil
}

// LocationIndex maps page numbers to page boundary locators of a single
// document. It is generated once per content hash with fixed budget,
// independent of viewport, and reused across sessions through the store.
type LocationIndex struct {
	hash   string
	budget int
	gen    Generator
	cmp    Comparer
	store  kvstore.Store
	log    *zap.Logger

	group singleflight.Group

	mu    sync.RWMutex
	table *pageTable
}

// NewLocationIndex prepares index for document with given content hash. When
// generator also implements Comparer, locators which are not page boundaries
// can be resolved to pages as well.
func NewLocationIndex(hash string, budget int, gen Generator, store kvstore.Store, log *zap.Logger) *LocationIndex {
	if budget <= 0 {
		budget = DefaultLocationsBudget
	}
	x := &LocationIndex{
		hash:   hash,
		budget: budget,
		gen:    gen,
		store:  store,
		log:    log.Named("locations"),
	}
	if cmp, ok := gen.(Comparer); ok {
		x.cmp = cmp
	}
	return x
}

// Ensure makes index available and returns total number of pages. Cached
// index is used when present, otherwise it is generated and persisted.
// Concurrent callers share single generation.
func (x *LocationIndex) Ensure(ctx context.Context) (int, error) {
	if total := x.Total(); total > 0 {
		return total, nil
	}
	v, err, _ := x.group.Do(x.hash, func() (any, error) {
		t, err := x.load(ctx)
		if err != nil {
			return nil, err
		}
		x.mu.Lock()
		x.table = t
		x.mu.Unlock()
		return len(t.locators), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (x *LocationIndex) load(ctx context.Context) (*pageTable, error) {
	key := kvstore.LocationsKey(x.hash)

	if len(x.hash) > 0 {
		t, err := x.loadCached(ctx, key)
		switch {
		case err == nil && t != nil:
			x.log.Debug("Location index loaded from cache", zap.String("hash", x.hash), zap.Int("pages", len(t.locators)))
			return t, nil
		case errors.Is(err, ErrPersistenceRead):
			x.log.Warn("Discarding cached location index", zap.String("hash", x.hash), zap.Error(err))
			if err := x.store.Delete(ctx, key); err != nil {
				x.log.Warn("Unable to discard cached location index", zap.Error(err))
			}
		case err != nil:
			// store is unavailable, index still could be generated
			x.log.Warn("Unable to read cached location index", zap.String("hash", x.hash), zap.Error(err))
		}
	}

	x.log.Debug("Generating location index", zap.String("hash", x.hash), zap.Int("budget", x.budget))
	locs, err := x.gen.GenerateLocations(ctx, x.budget)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexGeneration, err)
	}
	t, err := newPageTable(locs, x.cmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexGeneration, err)
	}

	if len(x.hash) > 0 {
		data, err := marshalLocators(t.locators)
		if err != nil {
			return nil, err
		}
		if err := x.store.Set(ctx, key, string(data)); err != nil {
			// index is usable for this session anyway
			x.log.Warn("Unable to persist location index", zap.String("hash", x.hash), zap.Error(err))
		}
	}
	x.log.Info("Location index generated", zap.String("hash", x.hash), zap.Int("pages", len(t.locators)))
	return t, nil
}

// loadCached returns nil table when nothing has been cached.
func (x *LocationIndex) loadCached(ctx context.Context, key string) (*pageTable, error) {
	raw, ok, err := x.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var locs []Locator
	if err := json.Unmarshal([]byte(raw), &locs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceRead, err)
	}
	t, err := newPageTable(locs, x.cmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceRead, err)
	}
	return t, nil
}

// Reset drops in-memory index and its cached copy. Reading position is
// dropped as well since it is only meaningful together with the index.
func (x *LocationIndex) Reset(ctx context.Context) error {
	x.mu.Lock()
	x.table = nil
	x.mu.Unlock()

	if len(x.hash) == 0 {
		return nil
	}
	if err := x.store.Delete(ctx, kvstore.LocationsKey(x.hash), kvstore.CurrentLocationKey(x.hash)); err != nil {
		return fmt.Errorf("unable to reset cached state for %s: %w", x.hash, err)
	}
	return nil
}

// Total returns number of pages, 0 when index is not available.
func (x *LocationIndex) Total() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.table == nil {
		return 0
	}
	return len(x.table.locators)
}

// LocatorOf returns boundary locator of 0 based page.
func (x *LocationIndex) LocatorOf(page int) (Locator, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.table == nil || page < 0 || page >= len(x.table.locators) {
		return "", false
	}
	return x.table.locators[page], true
}

// PageOf returns 0 based page containing locator. Boundaries resolve
// directly, other positions require renderer ordering.
func (x *LocationIndex) PageOf(loc Locator) (int, bool) {
	x.mu.RLock()
	t := x.table
	x.mu.RUnlock()

	if t == nil || loc.IsZero() {
		return 0, false
	}
	if p, ok := t.pages[loc]; ok {
		return p, true
	}
	if x.cmp == nil || !x.cmp.Contains(loc) {
		return 0, false
	}
	// first boundary after loc, page is the one before it
	n := sort.Search(len(t.locators), func(i int) bool {
		return x.cmp.Compare(t.locators[i], loc) > 0
	})
	if n == 0 {
		return 0, true
	}
	return n - 1, true
}

// Locators returns copy of page boundaries, nil when index is not available.
func (x *LocationIndex) Locators() []Locator {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.table == nil {
		return nil
	}
	return slices.Clone(x.table.locators)
}

// Serialize returns index in its persisted form.
func (x *LocationIndex) Serialize() ([]byte, error) {
	x.mu.RLock()
	t := x.table
	x.mu.RUnlock()
	if t == nil {
		return nil, ErrIndexGeneration
	}
	return marshalLocators(t.locators)
}

func marshalLocators(locs []Locator) ([]byte, error) {
	data, err := json.Marshal(locs)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize location index: %w", err)
	}
	return data, nil
}
