package session

import (
	"context"

	"bookview/common"
)

// Locator is an opaque renderer defined position in the document. Locators
// may only be ordered by the renderer, see Comparer.
type Locator string

// IsZero reports if locator does not point anywhere.
func (l Locator) IsZero() bool {
	return len(l) == 0
}

// Document is a fetched and hashed document package.
type Document struct {
	Name string
	// Hash is content address of Data, it scopes all persisted state.
	Hash string
	Data []byte
}

// Surface is the box renderer lays content into.
type Surface struct {
	Width, Height int
}

// Renderer creates renditions, the layout engine itself is external.
type Renderer interface {
	Render(ctx context.Context, doc *Document, surface Surface, flow common.FlowMode) (Rendition, error)
}

// Displayer moves rendition to the requested position. Empty locator
// displays renderer default (first page).
type Displayer interface {
	Display(ctx context.Context, target Locator) error
}

// LayoutApplier re-applies layout strategy.
type LayoutApplier interface {
	Flow(mode common.FlowMode) error
	Spread(mode common.SpreadMode) error
}

// Generator produces ordered page boundaries at fixed content budget.
type Generator interface {
	GenerateLocations(ctx context.Context, budget int) ([]Locator, error)
}

// Rendition is a handle to laid out document owned by a single session.
type Rendition interface {
	Displayer
	LayoutApplier
	Generator

	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	// OnRelocated registers callback invoked every time visible position
	// settles.
	OnRelocated(fn func(Locator)) (cancel func())
	Destroy() error
}

// Comparer is optional rendition capability to order locators in document
// order. Compare returns negative, zero or positive value and is only
// meaningful for locators Contains accepts.
type Comparer interface {
	Compare(a, b Locator) int
	// Contains reports if locator points into this document.
	Contains(loc Locator) bool
}

// TOCEntry is single table of contents item. Level is nesting depth, 0 for
// top level items.
type TOCEntry struct {
	Label   string
	Locator Locator
	Level   int
}

// TOCProvider is optional rendition capability to list table of contents.
type TOCProvider interface {
	TOC() []TOCEntry
}

// Resizer is optional rendition capability to be told about surface size.
type Resizer interface {
	Resize(width, height int) error
}
