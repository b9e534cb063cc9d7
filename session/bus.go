package session

import (
	"fmt"
	"sync"
)

// IntentKind enumerates canonical navigation intents.
type IntentKind int

const (
	IntentNext IntentKind = iota
	IntentPrev
	IntentGotoPage
	IntentGotoLocator
)

func (k IntentKind) String() string {
	switch k {
	case IntentNext:
		return "next"
	case IntentPrev:
		return "prev"
	case IntentGotoPage:
		return "goto-page"
	case IntentGotoLocator:
		return "goto-locator"
	default:
		return fmt.Sprintf("IntentKind(%d)", int(k))
	}
}

// NavigationIntent is a tagged value: only Page is meaningful for
// IntentGotoPage (1 based) and only Locator for IntentGotoLocator.
type NavigationIntent struct {
	Kind    IntentKind
	Page    int
	Locator Locator
}

func NextIntent() NavigationIntent { return NavigationIntent{Kind: IntentNext} }
func PrevIntent() NavigationIntent { return NavigationIntent{Kind: IntentPrev} }

func GotoPageIntent(page int) NavigationIntent {
	return NavigationIntent{Kind: IntentGotoPage, Page: page}
}

func GotoLocatorIntent(loc Locator) NavigationIntent {
	return NavigationIntent{Kind: IntentGotoLocator, Locator: loc}
}

func (i NavigationIntent) String() string {
	switch i.Kind {
	case IntentGotoPage:
		return fmt.Sprintf("%s(%d)", i.Kind, i.Page)
	case IntentGotoLocator:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Locator)
	default:
		return i.Kind.String()
	}
}

// Event is anything published on the session bus.
type Event interface {
	event()
}

// Relocated is published whenever renderer settles on a new position.
type Relocated struct {
	Locator Locator
}

// Resized is published for every sampled viewport size.
type Resized struct {
	Width, Height int
}

// InputIntent is published by input normalization.
type InputIntent struct {
	Intent NavigationIntent
	Source string
}

func (Relocated) event()   {}
func (Resized) event()     {}
func (InputIntent) event() {}

type subscriber struct {
	id      uint64
	deliver func(Event)
}

// Bus delivers events synchronously to subscribers in subscription order.
// Handlers run on publisher goroutine and may publish themselves.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Publish delivers event to a snapshot of current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.deliver(e)
	}
}

func (b *Bus) add(deliver func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, deliver: deliver})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribe registers handler for events of type E only and returns function
// to cancel subscription.
func Subscribe[E Event](b *Bus, fn func(E)) (cancel func()) {
	return b.add(func(e Event) {
		if v, ok := e.(E); ok {
			fn(v)
		}
	})
}
