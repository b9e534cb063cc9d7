// Package preview implements a linear plain text rendition of EPUB packages.
// It does not lay out anything: screen capacity is estimated from surface
// size with fixed glyph metrics. It is good enough to drive reading
// sessions from command line and in tests.
package preview

import (
	"archive/zip"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"bookview/archive"
	"bookview/common"
	"bookview/session"
)

// Metrics describe glyph box used to estimate screen capacity.
type Metrics struct {
	CharWidth  int
	LineHeight int
	// SpreadMinWidth is the narrowest surface which shows two pages side
	// by side when spread is requested.
	SpreadMinWidth int
}

func DefaultMetrics() Metrics {
	return Metrics{CharWidth: 8, LineHeight: 16, SpreadMinWidth: 800}
}

// DefaultSurface is used when host did not report surface size yet.
var DefaultSurface = session.Surface{Width: 1024, Height: 768}

type Renderer struct {
	metrics Metrics
	log     *zap.Logger
}

func NewRenderer(metrics Metrics, log *zap.Logger) *Renderer {
	return &Renderer{metrics: metrics, log: log.Named("preview")}
}

type entry struct {
	name string
	text []rune
}

// Render builds rendition from content documents of the package in spine
// order. Packages without usable spine are read in natural name order.
func (r *Renderer) Render(ctx context.Context, doc *session.Document, surface session.Surface, flow common.FlowMode) (session.Rendition, error) {
	start := time.Now()

	var names []string
	files := make(map[string]*zip.File)
	err := archive.WalkBytes(doc.Data, doc.Name, "", func(_ string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files[f.FileHeader.Name] = f
		switch strings.ToLower(path.Ext(f.FileHeader.Name)) {
		case ".xhtml", ".html", ".htm":
			names = append(names, f.FileHeader.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrDecode, err)
	}
	pkg, err := readPackage(files)
	if err != nil {
		r.log.Debug("No usable package document", zap.String("document", doc.Name), zap.Error(err))
	}
	if order, err := spineOrder(pkg); err == nil {
		names = order
	} else {
		r.log.Debug("Using natural content order", zap.String("document", doc.Name), zap.Error(err))
		sort.Sort(natural.StringSlice(names))
	}

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		data, err := archive.ReadEntry(files[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", session.ErrDecode, err)
		}
		text, err := extractText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", session.ErrDecode, name, err)
		}
		if len(text) == 0 {
			r.log.Debug("Skipping empty content document", zap.String("entry", name))
			continue
		}
		entries = append(entries, entry{name: name, text: text})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no readable content in %s", session.ErrDecode, doc.Name)
	}

	if surface.Width <= 0 || surface.Height <= 0 {
		surface = DefaultSurface
	}
	if !flow.IsValid() {
		flow = common.FlowModePaginated
	}
	b := &Book{
		entries:   entries,
		index:     make(map[string]int, len(entries)),
		metrics:   r.metrics,
		surface:   surface,
		flow:      flow,
		spread:    common.SpreadModeNone,
		listeners: make(map[uint64]func(session.Locator)),
		log:       r.log.With(zap.String("document", doc.Name)),
	}
	for i, e := range entries {
		b.index[e.name] = i
	}
	b.toc, err = tableOfContents(files, pkg, func(base, href string) (session.Locator, bool) {
		name := resolveHref(base, href)
		if _, ok := b.index[name]; !ok {
			return "", false
		}
		return b.locator(position{entry: b.index[name]}), true
	})
	if err != nil {
		r.log.Debug("Table of contents is not available", zap.String("document", doc.Name), zap.Error(err))
	}
	r.log.Debug("Rendition created", zap.String("document", doc.Name), zap.Int("entries", len(entries)), zap.Duration("elapsed", time.Since(start)))
	return b, nil
}
