package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is resize coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// ResizeCoordinator re-applies layout when rendering surface changes size.
// Bursts are coalesced on the leading edge: first change is applied at
// once, later samples inside the window are dropped. Relayouts never overlap.
type ResizeCoordinator struct {
	target   LayoutApplier
	display  Displayer
	layout   func() Layout
	position func() Locator
	window   time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu          sync.Mutex
	lastW       int
	lastH       int
	windowUntil time.Time

	// serializes relayouts
	apply sync.Mutex

	unsubscribe func()
}

// ResizeOptions wire coordinator to the session. Position, when set, is
// redisplayed after relayout. Initial is the size surface was rendered
// with, Now defaults to time.Now.
type ResizeOptions struct {
	Initial  Surface
	Window   time.Duration
	Layout   func() Layout
	Position func() Locator
	Display  Displayer
	Now      func() time.Time
}

func NewResizeCoordinator(bus *Bus, target LayoutApplier, opts ResizeOptions, log *zap.Logger) *ResizeCoordinator {
	c := &ResizeCoordinator{
		target:   target,
		display:  opts.Display,
		layout:   opts.Layout,
		position: opts.Position,
		window:   opts.Window,
		now:      opts.Now,
		log:      log.Named("resize"),
		lastW:    opts.Initial.Width,
		lastH:    opts.Initial.Height,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.layout == nil {
		c.layout = DefaultLayout
	}
	if bus != nil {
		c.unsubscribe = Subscribe(bus, func(e Resized) {
			if _, err := c.Observe(context.Background(), e.Width, e.Height); err != nil {
				c.log.Warn("Relayout failed", zap.Error(err))
			}
		})
	}
	return c
}

// Observe processes single size sample and reports whether relayout happened.
func (c *ResizeCoordinator) Observe(ctx context.Context, width, height int) (bool, error) {
	if width == 0 || height == 0 {
		// view is hidden or not focused
		return false, nil
	}

	c.mu.Lock()
	if width == c.lastW && height == c.lastH {
		c.mu.Unlock()
		return false, nil
	}
	now := c.now()
	if now.Before(c.windowUntil) {
		c.mu.Unlock()
		c.log.Debug("Resize suppressed", zap.Int("width", width), zap.Int("height", height))
		return false, nil
	}
	c.windowUntil = now.Add(c.window)
	c.lastW, c.lastH = width, height
	c.mu.Unlock()

	c.log.Debug("Resize", zap.Int("width", width), zap.Int("height", height))
	return true, c.relayout(ctx, true)
}

// Reapply re-applies current layout outside of resize, e.g. after layout
// settings change. Position is redisplayed only when requested.
func (c *ResizeCoordinator) Reapply(ctx context.Context, redisplay bool) error {
	return c.relayout(ctx, redisplay)
}

// LastApplied returns size of the last relayout.
func (c *ResizeCoordinator) LastApplied() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastW, c.lastH
}

func (c *ResizeCoordinator) relayout(ctx context.Context, redisplay bool) error {
	c.apply.Lock()
	defer c.apply.Unlock()

	l := c.layout()
	c.log.Debug("Relayout", zap.Stringer("flow", l.Flow), zap.Int("columns", l.Columns))
	if err := ApplyLayout(c.target, l); err != nil {
		return err
	}
	if !redisplay || c.display == nil || c.position == nil {
		return nil
	}
	if loc := c.position(); !loc.IsZero() {
		if err := c.display.Display(ctx, loc); err != nil {
			return fmt.Errorf("unable to restore position after relayout: %w", err)
		}
	}
	return nil
}

func (c *ResizeCoordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}
