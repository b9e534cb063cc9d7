package preview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bookview/common"
	"bookview/session"
)

var errDestroyed = errors.New("rendition has been destroyed")

// position is an offset in runes inside content document.
type position struct {
	entry  int
	offset int
}

// Book is a rendition of single document. Locators have "<entry>#<offset>"
// form. Every content document starts on a new screen.
type Book struct {
	entries []entry
	index   map[string]int
	toc     []session.TOCEntry
	metrics Metrics
	log     *zap.Logger

	mu        sync.Mutex
	pos       position
	surface   session.Surface
	flow      common.FlowMode
	spread    common.SpreadMode
	destroyed bool
	listeners map[uint64]func(session.Locator)
	nextID    uint64
}

func (b *Book) locator(p position) session.Locator {
	return session.Locator(b.entries[p.entry].name + "#" + strconv.Itoa(p.offset))
}

func (b *Book) parse(loc session.Locator) (position, error) {
	s := string(loc)
	i := strings.LastIndexByte(s, '#')
	if i < 0 {
		return position{}, fmt.Errorf("malformed locator %q", loc)
	}
	n, ok := b.index[s[:i]]
	if !ok {
		return position{}, fmt.Errorf("locator %q points to unknown document", loc)
	}
	off, err := strconv.Atoi(s[i+1:])
	if err != nil || off < 0 || off >= len(b.entries[n].text) {
		return position{}, fmt.Errorf("locator %q points outside of document", loc)
	}
	return position{entry: n, offset: off}, nil
}

// capacityLocked returns number of runes visible on a screen.
func (b *Book) capacityLocked() int {
	cols := max(1, b.surface.Width/max(1, b.metrics.CharWidth))
	rows := max(1, b.surface.Height/max(1, b.metrics.LineHeight))
	c := cols * rows
	if b.flow == common.FlowModePaginated && b.spread == common.SpreadModeAuto && b.surface.Width >= b.metrics.SpreadMinWidth {
		c *= 2
	}
	return c
}

// move changes position and notifies listeners outside of the lock.
func (b *Book) move(fn func() (position, bool, error)) error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return errDestroyed
	}
	p, moved, err := fn()
	if err != nil || !moved {
		b.mu.Unlock()
		return err
	}
	b.pos = p
	loc := b.locator(p)
	listeners := make([]func(session.Locator), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	b.log.Debug("Relocated", zap.String("locator", string(loc)))
	for _, l := range listeners {
		l(loc)
	}
	return nil
}

// Display settles exactly at requested locator, empty locator means the
// beginning of the book.
func (b *Book) Display(ctx context.Context, target session.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.move(func() (position, bool, error) {
		if target.IsZero() {
			return position{}, true, nil
		}
		p, err := b.parse(target)
		return p, err == nil, err
	})
}

func (b *Book) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.move(func() (position, bool, error) {
		p := b.pos
		p.offset += b.capacityLocked()
		if p.offset < len(b.entries[p.entry].text) {
			return p, true, nil
		}
		if p.entry+1 < len(b.entries) {
			return position{entry: p.entry + 1}, true, nil
		}
		// last screen
		return b.pos, false, nil
	})
}

func (b *Book) Prev(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.move(func() (position, bool, error) {
		p, c := b.pos, b.capacityLocked()
		switch {
		case p.offset > 0:
			p.offset = max(0, p.offset-c)
		case p.entry > 0:
			p.entry--
			p.offset = (len(b.entries[p.entry].text) - 1) / c * c
		default:
			// first screen
			return p, false, nil
		}
		return p, true, nil
	})
}

func (b *Book) Flow(mode common.FlowMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("unsupported flow %q", mode)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return errDestroyed
	}
	b.flow = mode
	return nil
}

func (b *Book) Spread(mode common.SpreadMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("unsupported spread %q", mode)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return errDestroyed
	}
	b.spread = mode
	return nil
}

func (b *Book) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid surface %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface = session.Surface{Width: width, Height: height}
	return nil
}

// GenerateLocations places page boundary every budget runes. Result does
// not depend on surface size or layout.
func (b *Book) GenerateLocations(ctx context.Context, budget int) ([]session.Locator, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("invalid budget %d", budget)
	}
	var locs []session.Locator
	for i, e := range b.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for off := 0; off < len(e.text); off += budget {
			locs = append(locs, b.locator(position{entry: i, offset: off}))
		}
	}
	return locs, nil
}

// TOC returns table of contents of the package. Entries point to start of
// content documents.
func (b *Book) TOC() []session.TOCEntry {
	return slices.Clone(b.toc)
}

// Contains reports if locator points to existing text of the book.
func (b *Book) Contains(loc session.Locator) bool {
	_, err := b.parse(loc)
	return err == nil
}

// Compare orders locators in reading order. Malformed locators are ordered
// by their text after all valid ones.
func (b *Book) Compare(x, y session.Locator) int {
	px, errx := b.parse(x)
	py, erry := b.parse(y)
	switch {
	case errx != nil && erry != nil:
		return strings.Compare(string(x), string(y))
	case errx != nil:
		return 1
	case erry != nil:
		return -1
	case px.entry != py.entry:
		return px.entry - py.entry
	default:
		return px.offset - py.offset
	}
}

func (b *Book) OnRelocated(fn func(session.Locator)) (cancel func()) {
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

// Screen returns locator and text of currently visible screen.
func (b *Book) Screen() (session.Locator, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := b.entries[b.pos.entry].text
	end := min(len(text), b.pos.offset+b.capacityLocked())
	return b.locator(b.pos), string(text[b.pos.offset:end])
}

func (b *Book) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return errDestroyed
	}
	b.destroyed = true
	clear(b.listeners)
	return nil
}

var (
	_ session.Rendition   = (*Book)(nil)
	_ session.Comparer    = (*Book)(nil)
	_ session.Resizer     = (*Book)(nil)
	_ session.TOCProvider = (*Book)(nil)
)
