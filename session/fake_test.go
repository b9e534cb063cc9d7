package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"bookview/common"
	"bookview/kvstore"
)

// fakeRendition pages through "loc-N" locators ordered by N. Display settles
// exactly at requested locator.
type fakeRendition struct {
	mu         sync.Mutex
	pages      []Locator
	genErr     error
	genCalls   int
	onGenerate func()
	toc        []TOCEntry
	budgets    []int
	displayed  []Locator
	current    Locator
	flows      []common.FlowMode
	spreads    []common.SpreadMode
	sizes      []Surface
	listeners  map[int]func(Locator)
	nextID     int
	destroyed  int
	destroyErr error
	displayErr error
}

func newFakeRendition(pages int) *fakeRendition {
	f := &fakeRendition{listeners: make(map[int]func(Locator))}
	for i := range pages {
		f.pages = append(f.pages, Locator(fmt.Sprintf("loc-%d", i)))
	}
	return f
}

func locNumber(l Locator) (int, bool) {
	s, ok := strings.CutPrefix(string(l), "loc-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (f *fakeRendition) TOC() []TOCEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toc
}

func (f *fakeRendition) Contains(loc Locator) bool {
	n, ok := locNumber(loc)
	return ok && n >= 0
}

func (f *fakeRendition) Compare(a, b Locator) int {
	na, oka := locNumber(a)
	nb, okb := locNumber(b)
	if !oka || !okb {
		return strings.Compare(string(a), string(b))
	}
	return na - nb
}

func (f *fakeRendition) settle(loc Locator) {
	f.mu.Lock()
	f.current = loc
	listeners := make([]func(Locator), 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()
	for _, l := range listeners {
		l(loc)
	}
}

func (f *fakeRendition) Display(ctx context.Context, target Locator) error {
	f.mu.Lock()
	if f.displayErr != nil {
		f.mu.Unlock()
		return f.displayErr
	}
	f.displayed = append(f.displayed, target)
	if target.IsZero() {
		target = "loc-0"
	}
	f.mu.Unlock()
	f.settle(target)
	return nil
}

func (f *fakeRendition) Next(ctx context.Context) error {
	f.mu.Lock()
	cur := f.current
	var next Locator
	for _, p := range f.pages {
		if f.Compare(p, cur) > 0 {
			next = p
			break
		}
	}
	f.mu.Unlock()
	if next.IsZero() {
		return nil
	}
	f.settle(next)
	return nil
}

func (f *fakeRendition) Prev(ctx context.Context) error {
	f.mu.Lock()
	cur := f.current
	var prev Locator
	for i := len(f.pages) - 1; i >= 0; i-- {
		if f.Compare(f.pages[i], cur) < 0 {
			prev = f.pages[i]
			break
		}
	}
	f.mu.Unlock()
	if prev.IsZero() {
		return nil
	}
	f.settle(prev)
	return nil
}

func (f *fakeRendition) Flow(mode common.FlowMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows = append(f.flows, mode)
	return nil
}

func (f *fakeRendition) Spread(mode common.SpreadMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spreads = append(f.spreads, mode)
	return nil
}

func (f *fakeRendition) Resize(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, Surface{Width: width, Height: height})
	return nil
}

func (f *fakeRendition) GenerateLocations(ctx context.Context, budget int) ([]Locator, error) {
	f.mu.Lock()
	hook := f.onGenerate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	f.budgets = append(f.budgets, budget)
	if f.genErr != nil {
		return nil, f.genErr
	}
	out := make([]Locator, len(f.pages))
	copy(out, f.pages)
	return out, nil
}

func (f *fakeRendition) OnRelocated(fn func(Locator)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeRendition) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
	return f.destroyErr
}

func (f *fakeRendition) Current() Locator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeRendition) Displayed() []Locator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Locator(nil), f.displayed...)
}

func (f *fakeRendition) Flows() []common.FlowMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.FlowMode(nil), f.flows...)
}

func (f *fakeRendition) Spreads() []common.SpreadMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.SpreadMode(nil), f.spreads...)
}

func (f *fakeRendition) GenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genCalls
}

func (f *fakeRendition) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type fakeRenderer struct {
	rendition *fakeRendition
	err       error
	surface   Surface
	flow      common.FlowMode
}

func (r *fakeRenderer) Render(ctx context.Context, doc *Document, surface Surface, flow common.FlowMode) (Rendition, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.surface, r.flow = surface, flow
	return r.rendition, nil
}

// generatorFunc has no ordering capability.
type generatorFunc func(ctx context.Context, budget int) ([]Locator, error)

func (g generatorFunc) GenerateLocations(ctx context.Context, budget int) ([]Locator, error) {
	return g(ctx, budget)
}

var errStoreDown = errors.New("store is down")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (brokenStore) Set(context.Context, string, string) error         { return errStoreDown }
func (brokenStore) Delete(context.Context, ...string) error           { return errStoreDown }
func (brokenStore) Close() error                                      { return nil }

var _ kvstore.Store = brokenStore{}

type selection bool

func (s selection) IsCollapsed() bool { return !bool(s) }
