package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookview/common"
	"bookview/session"
)

type actionKind int

const (
	actionNext actionKind = iota
	actionPrev
	actionGoto
	actionLocator
	actionPage
	actionKey
	actionClick
	actionTap
	actionResize
	actionLayout
	actionTOC
)

const defaultTapHold = 100 * time.Millisecond

// action is a single scripted input of "read" command.
type action struct {
	kind actionKind
	// text is action as written, used as status label
	text    string
	arg     string
	page    int
	x, y    float64
	hold    time.Duration
	width   int
	height  int
	layout  session.Layout
	locator session.Locator
}

// parseAction understands:
//
//	next, prev, goto:N, loc:LOCATOR, page:TEXT, key:CODE, click:X,Y,
//	tap:X,Y[,MS], resize:WxH, layout:FLOW[:COLUMNS], toc:N
func parseAction(s string) (action, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	a := action{text: s}
	switch strings.ToLower(name) {
	case "next", "n":
		a.kind = actionNext
	case "prev", "p":
		a.kind = actionPrev
	case "goto", "g":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return a, fmt.Errorf("bad page number in %q: %w", s, err)
		}
		a.kind, a.page = actionGoto, n
	case "toc":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return a, fmt.Errorf("bad table of contents entry in %q", s)
		}
		a.kind, a.page = actionTOC, n
	case "loc":
		if len(arg) == 0 {
			return a, fmt.Errorf("empty locator in %q", s)
		}
		a.kind, a.locator = actionLocator, session.Locator(arg)
	case "page":
		a.kind, a.arg = actionPage, arg
	case "key":
		if len(arg) == 0 {
			return a, fmt.Errorf("empty key code in %q", s)
		}
		a.kind, a.arg = actionKey, arg
	case "click":
		x, y, rest, err := parsePoint(arg)
		if err != nil || len(rest) != 0 {
			return a, fmt.Errorf("bad click %q, expected click:X,Y", s)
		}
		a.kind, a.x, a.y = actionClick, x, y
	case "tap":
		x, y, rest, err := parsePoint(arg)
		if err != nil || len(rest) > 1 {
			return a, fmt.Errorf("bad tap %q, expected tap:X,Y[,MS]", s)
		}
		a.kind, a.x, a.y, a.hold = actionTap, x, y, defaultTapHold
		if len(rest) == 1 {
			ms, err := strconv.Atoi(rest[0])
			if err != nil || ms < 0 {
				return a, fmt.Errorf("bad tap duration in %q", s)
			}
			a.hold = time.Duration(ms) * time.Millisecond
		}
	case "resize":
		w, h, err := parseSize(arg)
		if err != nil {
			return a, fmt.Errorf("bad resize %q: %w", s, err)
		}
		a.kind, a.width, a.height = actionResize, w, h
	case "layout":
		l, err := parseLayout(arg)
		if err != nil {
			return a, fmt.Errorf("bad layout %q: %w", s, err)
		}
		a.kind, a.layout = actionLayout, l
	default:
		return a, fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

func parsePoint(s string) (x, y float64, rest []string, err error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return 0, 0, nil, errors.New("expected X,Y")
	}
	if x, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, nil, err
	}
	if y, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, nil, err
	}
	return x, y, parts[2:], nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.New("expected WIDTHxHEIGHT")
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 0 {
		return 0, 0, fmt.Errorf("bad width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("bad height %q", hs)
	}
	return w, h, nil
}

func parseLayout(s string) (session.Layout, error) {
	fs, cs, hasColumns := strings.Cut(s, ":")
	flow, err := common.ParseFlowMode(fs)
	if err != nil {
		return session.Layout{}, err
	}
	l := session.Layout{Flow: flow, Columns: 1}
	if hasColumns {
		if l.Columns, err = strconv.Atoi(cs); err != nil {
			return session.Layout{}, fmt.Errorf("bad columns %q", cs)
		}
	}
	if !l.Valid() {
		return session.Layout{}, fmt.Errorf("unsupported columns %d", l.Columns)
	}
	return l, nil
}

// run performs action against session. Input actions go through navigator
// exactly as host input would, so they may be legitimately ignored.
func (a action) run(ctx context.Context, s *session.Session, now time.Time) error {
	switch a.kind {
	case actionNext:
		return s.Dispatch(ctx, session.NextIntent())
	case actionPrev:
		return s.Dispatch(ctx, session.PrevIntent())
	case actionGoto:
		return s.Dispatch(ctx, session.GotoPageIntent(a.page))
	case actionLocator:
		return s.Dispatch(ctx, session.GotoLocatorIntent(a.locator))
	case actionTOC:
		return s.GotoTOC(ctx, a.page)
	case actionPage:
		bar := s.TopBar()
		bar.Focus(true)
		bar.Edit(a.arg)
		if _, err := bar.Confirm(ctx); err != nil && !errors.Is(err, session.ErrNavigationNoop) {
			return err
		}
		return nil
	case actionKey:
		s.Navigator().HandleKey(session.KeyEvent{Code: a.arg})
		return nil
	case actionClick:
		s.Navigator().HandleClick(session.PointerEvent{X: a.x, Y: a.y})
		return nil
	case actionTap:
		nav := s.Navigator()
		nav.HandleTouchStart(session.TouchEvent{X: a.x, Y: a.y, At: now})
		nav.HandleTouchEnd(session.TouchEvent{X: a.x, Y: a.y, At: now.Add(a.hold)})
		return nil
	case actionResize:
		s.Resize(a.width, a.height)
		return nil
	case actionLayout:
		return s.ApplyLayout(ctx, a.layout)
	}
	return fmt.Errorf("unsupported action %q", a.text)
}
