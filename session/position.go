package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookview/kvstore"
)

const persistTimeout = 5 * time.Second

// absentLocation reports values which mean "no saved position". Older
// viewers stored stringified null and undefined.
func absentLocation(v string) bool {
	return v == "" || v == "null" || v == "undefined"
}

// PositionTracker persists last rendered position of the document and
// restores it when session starts. Only settled positions are written: a
// requested display may be superseded before it completes.
type PositionTracker struct {
	hash  string
	store kvstore.Store
	log   *zap.Logger

	mu      sync.Mutex
	current Locator

	unsubscribe func()
}

func NewPositionTracker(hash string, store kvstore.Store, bus *Bus, log *zap.Logger) *PositionTracker {
	p := &PositionTracker{
		hash:  hash,
		store: store,
		log:   log.Named("position"),
	}
	p.unsubscribe = Subscribe(bus, p.onRelocated)
	return p
}

// Restore displays last persisted position or renderer default when there
// is none. It returns locator which has been requested.
func (p *PositionTracker) Restore(ctx context.Context, d Displayer) (Locator, error) {
	var target Locator
	if len(p.hash) > 0 {
		v, ok, err := p.store.Get(ctx, kvstore.CurrentLocationKey(p.hash))
		if err != nil {
			p.log.Warn("Unable to read reading position, starting from the beginning", zap.String("hash", p.hash), zap.Error(err))
		} else if ok && !absentLocation(v) {
			target = Locator(v)
		}
	}

	p.log.Debug("Restoring reading position", zap.String("hash", p.hash), zap.String("locator", string(target)))
	err := d.Display(ctx, target)
	if err == nil {
		return target, nil
	}
	if target.IsZero() {
		return target, fmt.Errorf("unable to display document: %w", err)
	}
	// saved position may not be valid for this rendition anymore
	p.log.Warn("Unable to restore reading position, starting from the beginning", zap.String("locator", string(target)), zap.Error(err))
	if err := d.Display(ctx, ""); err != nil {
		return "", fmt.Errorf("unable to display document: %w", err)
	}
	return "", nil
}

func (p *PositionTracker) onRelocated(e Relocated) {
	if e.Locator.IsZero() {
		return
	}
	p.mu.Lock()
	p.current = e.Locator
	p.mu.Unlock()

	if len(p.hash) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := p.store.Set(ctx, kvstore.CurrentLocationKey(p.hash), string(e.Locator)); err != nil {
		p.log.Warn("Unable to persist reading position", zap.String("hash", p.hash), zap.Error(err))
	}
}

// Current returns last settled position, empty until renderer relocates.
func (p *PositionTracker) Current() Locator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *PositionTracker) Close() {
	p.unsubscribe()
}
