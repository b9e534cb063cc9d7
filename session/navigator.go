package session

import (
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"bookview/common"
)

// Key codes recognized by keyboard navigation.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// Intent sources.
const (
	SourceKeyboard = "keyboard"
	SourcePointer  = "pointer"
	SourceTouch    = "touch"
	SourcePageBox  = "page-input"
)

// KeyEvent carries key code of a key press.
type KeyEvent struct {
	Code string
}

// PointerEvent is a click with surface relative coordinates.
type PointerEvent struct {
	X, Y float64
}

// Selection answers whether text selection is collapsed (empty).
type Selection interface {
	IsCollapsed() bool
}

// TouchEvent describes touch start or end. Selection may be nil when host
// has no selection.
type TouchEvent struct {
	X, Y      float64
	At        time.Time
	Selection Selection
}

// NavigatorOptions control input classification.
type NavigatorOptions struct {
	Mode common.NavigationMode
	// NarrowWidth is the widest viewport treated as touch surface in auto mode.
	NarrowWidth int
	// EdgeZone is width of click capture regions at both surface edges.
	EdgeZone int
	// Tap must be shorter than MaxTouchDuration and move no more than
	// MaxTouchMovement on each axis.
	MaxTouchDuration time.Duration
	MaxTouchMovement float64
}

// DefaultNavigatorOptions mirror defaults of configuration template.
func DefaultNavigatorOptions() NavigatorOptions {
	return NavigatorOptions{
		Mode:             common.NavigationModeAuto,
		NarrowWidth:      650,
		EdgeZone:         48,
		MaxTouchDuration: 300 * time.Millisecond,
		MaxTouchMovement: 4,
	}
}

type touchStart struct {
	x, y float64
	at   time.Time
}

// Navigator turns keyboard, pointer and touch input into navigation intents
// published on the bus. Concurrently satisfied sources are not deduplicated.
type Navigator struct {
	bus   *Bus
	opts  NavigatorOptions
	focus *atomic.Bool
	log   *zap.Logger

	mu       sync.Mutex
	width    int
	height   int
	layout   Layout
	start    *touchStart
	unsubscr func()
}

// NewNavigator creates input normalizer. Focus is shared with page number
// input: keyboard navigation is suppressed while it is set.
func NewNavigator(bus *Bus, opts NavigatorOptions, layout Layout, focus *atomic.Bool, log *zap.Logger) *Navigator {
	if focus == nil {
		focus = atomic.NewBool(false)
	}
	n := &Navigator{
		bus:    bus,
		opts:   opts,
		focus:  focus,
		layout: layout,
		log:    log.Named("navigator"),
	}
	n.unsubscr = Subscribe(bus, n.onResized)
	return n
}

func (n *Navigator) onResized(e Resized) {
	if e.Width == 0 || e.Height == 0 {
		return
	}
	n.mu.Lock()
	n.width, n.height = e.Width, e.Height
	n.mu.Unlock()
}

// SetLayout informs navigator about current layout, pointer zones depend on it.
func (n *Navigator) SetLayout(l Layout) {
	n.mu.Lock()
	n.layout = l
	n.mu.Unlock()
}

// Touch reports if input surface is currently treated as narrow touch
// surface rather than wide pointer surface.
func (n *Navigator) Touch() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.touchLocked()
}

func (n *Navigator) touchLocked() bool {
	switch n.opts.Mode {
	case common.NavigationModeTouch:
		return true
	case common.NavigationModePointer:
		return false
	default:
		return n.width > 0 && n.width <= n.opts.NarrowWidth
	}
}

// ZonesActive reports if edge click zones are shown.
func (n *Navigator) ZonesActive() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.zonesActiveLocked()
}

func (n *Navigator) zonesActiveLocked() bool {
	if n.touchLocked() {
		return false
	}
	// spread puts content under both edges
	return !(n.layout.Flow == common.FlowModePaginated && n.layout.Columns == 2)
}

func (n *Navigator) emit(intent NavigationIntent, source string) {
	n.log.Debug("Navigation intent", zap.Stringer("intent", intent), zap.String("source", source))
	n.bus.Publish(InputIntent{Intent: intent, Source: source})
}

// HandleKey returns true when key press produced intent.
func (n *Navigator) HandleKey(ev KeyEvent) bool {
	if n.focus.Load() {
		return false
	}
	switch ev.Code {
	case KeyArrowLeft:
		n.emit(PrevIntent(), SourceKeyboard)
	case KeyArrowRight:
		n.emit(NextIntent(), SourceKeyboard)
	default:
		return false
	}
	return true
}

// HandleClick returns true when click landed in active edge zone.
func (n *Navigator) HandleClick(ev PointerEvent) bool {
	n.mu.Lock()
	active, width, zone := n.zonesActiveLocked(), float64(n.width), float64(n.opts.EdgeZone)
	n.mu.Unlock()

	if !active || width <= 0 {
		return false
	}
	switch {
	case ev.X >= 0 && ev.X < zone:
		n.emit(PrevIntent(), SourcePointer)
	case ev.X > width-zone && ev.X <= width:
		n.emit(NextIntent(), SourcePointer)
	default:
		return false
	}
	return true
}

// HandleTouchStart remembers where and when touch began.
func (n *Navigator) HandleTouchStart(ev TouchEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.touchLocked() {
		return
	}
	n.start = &touchStart{x: ev.X, y: ev.Y, at: ev.At}
}

// HandleTouchEnd returns true when touch classified as a tap: short, nearly
// still and not ending a text selection. Tap on the right half moves
// forward, on the left half backward.
func (n *Navigator) HandleTouchEnd(ev TouchEvent) bool {
	n.mu.Lock()
	start, width := n.start, float64(n.width)
	n.start = nil
	touch := n.touchLocked()
	n.mu.Unlock()

	if !touch || start == nil {
		return false
	}
	if ev.Selection != nil && !ev.Selection.IsCollapsed() {
		return false
	}
	if !n.isTap(start, ev) || width <= 0 {
		return false
	}
	if ev.X > width/2 {
		n.emit(NextIntent(), SourceTouch)
	} else {
		n.emit(PrevIntent(), SourceTouch)
	}
	return true
}

func (n *Navigator) isTap(start *touchStart, end TouchEvent) bool {
	duration := end.At.Sub(start.at)
	dx := math.Abs(end.X - start.x)
	dy := math.Abs(end.Y - start.y)
	return duration < n.opts.MaxTouchDuration && dx <= n.opts.MaxTouchMovement && dy <= n.opts.MaxTouchMovement
}

func (n *Navigator) Close() {
	n.unsubscr()
}
