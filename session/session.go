package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"bookview/config"
	"bookview/kvstore"
)

// State of document session.
type State int32

const (
	StateLoading State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Options tune document session.
type Options struct {
	Budget    int
	Debounce  time.Duration
	Layout    Layout
	Navigator NavigatorOptions
	Surface   Surface
}

func DefaultOptions() Options {
	return Options{
		Budget:    DefaultLocationsBudget,
		Debounce:  DefaultDebounce,
		Layout:    DefaultLayout(),
		Navigator: DefaultNavigatorOptions(),
	}
}

// OptionsFromConfig builds session options from program configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Budget:   cfg.Reader.LocationsBudget,
		Debounce: cfg.Reader.Debounce,
		Layout: Layout{
			Flow:    cfg.Layout.Flow,
			Columns: cfg.Layout.Columns,
		},
		Navigator: NavigatorOptions{
			Mode:             cfg.Reader.NavigationMode,
			NarrowWidth:      cfg.Reader.NarrowWidth,
			EdgeZone:         cfg.Reader.EdgeZone,
			MaxTouchDuration: cfg.Reader.Touch.MaxDuration,
			MaxTouchMovement: cfg.Reader.Touch.MaxMovement,
		},
	}
}

// Session is a single open document: rendition plus everything which keeps
// page model, reading position and input in sync with it.
type Session struct {
	ID   uuid.UUID
	Name string
	Hash string

	log       *zap.Logger
	store     kvstore.Store
	rendition Rendition
	bus       *Bus
	focus     *atomic.Bool

	index     *LocationIndex
	tracker   *PositionTracker
	topbar    *TopBar
	navigator *Navigator
	resize    *ResizeCoordinator

	state atomic.Int32
	seq   atomic.Uint64

	mu     sync.Mutex
	layout Layout

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	indexed  chan struct{}
	indexErr error

	cancels []func()
}

// Open renders document, restores reading position and layout and starts
// building location index in background. Only fetch and decode failures
// abort opening, everything else degrades.
func Open(ctx context.Context, doc *Document, renderer Renderer, store kvstore.Store, opts Options, log *zap.Logger) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	s := &Session{
		ID:      id,
		Name:    doc.Name,
		Hash:    doc.Hash,
		store:   store,
		bus:     NewBus(),
		focus:   atomic.NewBool(false),
		indexed: make(chan struct{}),
	}
	s.log = log.Named("session").With(zap.Stringer("id", id), zap.String("hash", doc.Hash))
	s.state.Store(int32(StateLoading))

	s.layout = LoadLayout(ctx, store, opts.Layout, s.log)

	start := time.Now()
	r, err := renderer.Render(ctx, doc, opts.Surface, s.layout.Flow)
	if err != nil {
		if errors.Is(err, ErrFetch) || errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	s.rendition = r
	s.log.Debug("Document rendered", zap.String("name", doc.Name), zap.Duration("elapsed", time.Since(start)))

	// subscribers must be in place before anything gets displayed
	s.cancels = append(s.cancels, r.OnRelocated(func(loc Locator) {
		s.bus.Publish(Relocated{Locator: loc})
	}))
	s.index = NewLocationIndex(doc.Hash, opts.Budget, r, store, s.log)
	s.tracker = NewPositionTracker(doc.Hash, store, s.bus, s.log)
	s.topbar = NewTopBar(s.bus, s.index, r, s.focus, s.log)

	if err := ApplyLayout(r, s.layout); err != nil {
		s.log.Warn("Unable to apply layout", zap.Error(err))
	}
	if _, err := s.tracker.Restore(ctx, r); err != nil {
		s.log.Warn("Unable to restore reading position", zap.Error(err))
	}

	s.navigator = NewNavigator(s.bus, opts.Navigator, s.layout, s.focus, s.log)
	s.bus.Publish(Resized{Width: opts.Surface.Width, Height: opts.Surface.Height})
	s.resize = NewResizeCoordinator(s.bus, r, ResizeOptions{
		Initial:  opts.Surface,
		Window:   opts.Debounce,
		Layout:   s.Layout,
		Position: s.tracker.Current,
		Display:  r,
	}, s.log)

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cancels = append(s.cancels, Subscribe(s.bus, func(e InputIntent) {
		if err := s.Dispatch(s.ctx, e.Intent); err != nil {
			s.log.Warn("Navigation failed", zap.Stringer("intent", e.Intent), zap.String("source", e.Source), zap.Error(err))
		}
	}))

	s.state.Store(int32(StateReady))
	s.log.Info("Session ready", zap.String("name", doc.Name), zap.Stringer("layout.flow", s.layout.Flow), zap.Int("layout.columns", s.layout.Columns))

	s.wg.Add(1)
	go s.buildIndex()
	return s, nil
}

func (s *Session) buildIndex() {
	defer s.wg.Done()
	defer close(s.indexed)

	total, err := s.index.Ensure(s.ctx)
	if err != nil {
		s.indexErr = err
		s.log.Warn("Page count is not available", zap.Error(err))
		return
	}
	s.syncPages(total)
}

// syncPages publishes page count and resolves current page against fresh
// index: relocations seen while index was missing could not be resolved.
func (s *Session) syncPages(total int) {
	s.topbar.SetTotal(total)
	if p, ok := s.index.PageOf(s.tracker.Current()); ok {
		s.topbar.SetCurrent(p + 1)
	}
}

// WaitIndexed blocks until background index build finishes and returns
// total number of pages.
func (s *Session) WaitIndexed(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.indexed:
	}
	if s.indexErr != nil {
		return 0, s.indexErr
	}
	return s.index.Total(), nil
}

// Dispatch performs navigation intent. Overlapping dispatches are neither
// queued nor cancelled, the last settled position wins. Unresolvable
// targets are ignored.
func (s *Session) Dispatch(ctx context.Context, intent NavigationIntent) error {
	if s.State() != StateReady {
		return ErrClosed
	}
	seq := s.seq.Inc()
	s.log.Debug("Dispatch", zap.Uint64("seq", seq), zap.Stringer("intent", intent))

	var err error
	switch intent.Kind {
	case IntentNext:
		err = s.rendition.Next(ctx)
	case IntentPrev:
		err = s.rendition.Prev(ctx)
	case IntentGotoPage:
		_, err = s.topbar.Goto(ctx, intent.Page)
	case IntentGotoLocator:
		if intent.Locator.IsZero() {
			err = fmt.Errorf("%w: empty locator", ErrNavigationNoop)
		} else {
			err = s.rendition.Display(ctx, intent.Locator)
		}
	default:
		err = fmt.Errorf("%w: unknown intent %s", ErrNavigationNoop, intent)
	}
	if errors.Is(err, ErrNavigationNoop) {
		s.log.Debug("Navigation ignored", zap.Uint64("seq", seq), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatch %d (%s): %w", seq, intent, err)
	}
	return nil
}

// Resize reports new surface size.
func (s *Session) Resize(width, height int) {
	if s.State() != StateReady {
		return
	}
	if rs, ok := s.rendition.(Resizer); ok && width > 0 && height > 0 {
		if err := rs.Resize(width, height); err != nil {
			s.log.Warn("Unable to resize rendition", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		}
	}
	s.bus.Publish(Resized{Width: width, Height: height})
}

// ApplyLayout persists and applies new layout choice. When flow or columns
// changed the last settled position is displayed again.
func (s *Session) ApplyLayout(ctx context.Context, l Layout) error {
	if s.State() != StateReady {
		return ErrClosed
	}
	if !l.Valid() {
		return fmt.Errorf("invalid layout: flow %q, columns %d", l.Flow, l.Columns)
	}
	s.mu.Lock()
	changed := s.layout != l
	s.layout = l
	s.mu.Unlock()

	if err := SaveLayout(ctx, s.store, l); err != nil {
		s.log.Warn("Layout will not be remembered", zap.Error(err))
	}
	s.navigator.SetLayout(l)
	return s.resize.Reapply(ctx, changed)
}

// Layout returns layout in effect.
func (s *Session) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Reset drops cached index and position of the document and rebuilds index.
func (s *Session) Reset(ctx context.Context) (int, error) {
	if s.State() != StateReady {
		return 0, ErrClosed
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, err
	}
	total, err := s.index.Ensure(ctx)
	if err != nil {
		return 0, err
	}
	s.syncPages(total)
	return total, nil
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Bus() *Bus {
	return s.bus
}

func (s *Session) TopBar() *TopBar {
	return s.topbar
}

func (s *Session) Navigator() *Navigator {
	return s.navigator
}

// Rendition returns rendition owned by the session.
func (s *Session) Rendition() Rendition {
	return s.rendition
}

func (s *Session) Index() *LocationIndex {
	return s.index
}

// TOC returns table of contents when rendition provides one.
func (s *Session) TOC() []TOCEntry {
	if p, ok := s.rendition.(TOCProvider); ok {
		return p.TOC()
	}
	return nil
}

// GotoTOC displays n-th (1 based) table of contents entry.
func (s *Session) GotoTOC(ctx context.Context, n int) error {
	toc := s.TOC()
	if n < 1 || n > len(toc) {
		return fmt.Errorf("%w: no table of contents entry %d", ErrNavigationNoop, n)
	}
	return s.Dispatch(ctx, GotoLocatorIntent(toc[n-1].Locator))
}

// Position returns last settled locator.
func (s *Session) Position() Locator {
	return s.tracker.Current()
}

// Close stops background work, detaches all subscribers and destroys
// rendition. It is safe to call more than once.
func (s *Session) Close() error {
	if !s.state.CompareAndSwap(int32(StateReady), int32(StateClosed)) {
		return nil
	}
	s.cancel()
	s.wg.Wait()

	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.resize.Close()
	s.navigator.Close()
	s.topbar.Close()
	s.tracker.Close()

	var err error
	if e := s.rendition.Destroy(); e != nil {
		err = multierr.Append(err, fmt.Errorf("unable to destroy rendition: %w", e))
	}
	s.log.Info("Session closed", zap.Uint64("dispatched", s.seq.Load()))
	return err
}
