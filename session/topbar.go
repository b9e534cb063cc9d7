package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// PageResolver translates between 0 based pages and locators.
type PageResolver interface {
	PageOf(loc Locator) (int, bool)
	LocatorOf(page int) (Locator, bool)
}

// PageStatus is what page indicator shows. Total is 0 while unknown.
type PageStatus struct {
	Current int
	Total   int
}

func (s PageStatus) String() string {
	if s.Total == 0 {
		return fmt.Sprintf("%d / …", s.Current)
	}
	return fmt.Sprintf("%d / %d", s.Current, s.Total)
}

// TopBar is view model of page indicator with editable page number.
type TopBar struct {
	index   PageResolver
	display Displayer
	focus   *atomic.Bool
	log     *zap.Logger

	mu        sync.Mutex
	current   int
	total     int
	pending   string
	editing   bool
	listeners map[uint64]func(PageStatus)
	nextID    uint64

	unsubscribe func()
}

func NewTopBar(bus *Bus, index PageResolver, display Displayer, focus *atomic.Bool, log *zap.Logger) *TopBar {
	if focus == nil {
		focus = atomic.NewBool(false)
	}
	b := &TopBar{
		index:     index,
		display:   display,
		focus:     focus,
		log:       log.Named("topbar"),
		current:   1,
		listeners: make(map[uint64]func(PageStatus)),
	}
	b.unsubscribe = Subscribe(bus, b.onRelocated)
	return b
}

func (b *TopBar) onRelocated(e Relocated) {
	if p, ok := b.index.PageOf(e.Locator); ok {
		b.SetCurrent(p + 1)
	}
}

// Subscribe registers listener called on every change of page status.
func (b *TopBar) Subscribe(fn func(PageStatus)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// update applies change under lock and notifies listeners if status changed.
func (b *TopBar) update(fn func()) {
	b.mu.Lock()
	before := PageStatus{Current: b.current, Total: b.total}
	fn()
	after := PageStatus{Current: b.current, Total: b.total}
	if before == after {
		b.mu.Unlock()
		return
	}
	listeners := make([]func(PageStatus), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(after)
	}
}

// SetTotal sets known number of pages, never less than 1.
func (b *TopBar) SetTotal(n int) {
	b.update(func() { b.total = max(1, n) })
}

// SetCurrent sets displayed page, never less than 1.
func (b *TopBar) SetCurrent(n int) {
	b.update(func() {
		b.current = max(1, n)
		if !b.editing {
			b.pending = ""
		}
	})
}

func (b *TopBar) Status() PageStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PageStatus{Current: b.current, Total: b.total}
}

func (b *TopBar) Total() int {
	return b.Status().Total
}

func (b *TopBar) Current() int {
	return b.Status().Current
}

// Goto displays requested page clamped into [1, total] and returns page it
// resolved to. While page count is unknown or page boundary cannot be
// resolved it does nothing and returns ErrNavigationNoop.
func (b *TopBar) Goto(ctx context.Context, requested int) (int, error) {
	total := b.Total()
	if total == 0 {
		return 0, fmt.Errorf("%w: page count is unknown", ErrNavigationNoop)
	}
	page := min(max(1, requested), total)

	loc, ok := b.index.LocatorOf(page - 1)
	if !ok {
		return 0, fmt.Errorf("%w: page %d", ErrNavigationNoop, page)
	}

	b.SetCurrent(page)
	b.log.Debug("Goto page", zap.Int("requested", requested), zap.Int("page", page), zap.String("locator", string(loc)))
	if err := b.display.Display(ctx, loc); err != nil {
		return page, fmt.Errorf("unable to display page %d: %w", page, err)
	}
	return page, nil
}

// Focus marks page number input focused, keyboard page turns are
// suppressed while it is focused.
func (b *TopBar) Focus(focused bool) {
	b.focus.Store(focused)
	b.mu.Lock()
	b.editing = focused
	b.mu.Unlock()
}

// Edit records text typed into page number input. Nothing happens until
// the edit is confirmed.
func (b *TopBar) Edit(text string) {
	b.mu.Lock()
	b.pending = text
	b.editing = true
	b.mu.Unlock()
}

// Pending returns uncommitted page input text.
func (b *TopBar) Pending() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Confirm commits pending page input. Malformed input is dropped.
func (b *TopBar) Confirm(ctx context.Context) (int, error) {
	b.mu.Lock()
	text := strings.TrimSpace(b.pending)
	b.pending, b.editing = "", false
	b.mu.Unlock()
	b.focus.Store(false)

	if len(text) == 0 {
		text = "1"
	}
	n, ok := leadingInt(text)
	if !ok {
		return 0, fmt.Errorf("%w: malformed page number %q", ErrNavigationNoop, text)
	}
	return b.Goto(ctx, max(1, n))
}

// leadingInt parses optionally signed number at the start of text and
// ignores the rest, so "12abc" is 12.
func leadingInt(text string) (int, bool) {
	end := 0
	if len(text) > 0 && (text[0] == '-' || text[0] == '+') {
		end++
	}
	digits := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil {
		// out of range
		return 0, false
	}
	return n, true
}

// Cancel drops pending page input.
func (b *TopBar) Cancel() {
	b.mu.Lock()
	b.pending, b.editing = "", false
	b.mu.Unlock()
	b.focus.Store(false)
}

func (b *TopBar) Close() {
	b.unsubscribe()
}
