package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bookview/fetch"
	"bookview/kvstore"
	"bookview/preview"
	"bookview/session"
	"bookview/state"
	"bookview/utils/debug"
)

const defaultSurface = "1024x768"

// screen is implemented by renditions which can show visible text.
type screen interface {
	Screen() (session.Locator, string)
}

// openSession fetches source and opens reading session for it.
func openSession(ctx context.Context, cmd *cli.Command, log *zap.Logger) (*session.Session, error) {
	env := state.EnvFromContext(ctx)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return nil, errors.New("no input source has been specified")
	}
	w, h, err := parseSize(cmd.String("surface"))
	if err != nil {
		return nil, fmt.Errorf("bad surface size: %w", err)
	}

	doc, err := fetch.New(log).Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	opts := session.OptionsFromConfig(env.Cfg)
	opts.Surface = session.Surface{Width: w, Height: h}

	return session.Open(ctx, doc, preview.NewRenderer(preview.DefaultMetrics(), log), env.Store, opts, log)
}

// waitIndexed waits for page count, session is usable without it.
func waitIndexed(ctx context.Context, s *session.Session, log *zap.Logger) {
	total, err := s.WaitIndexed(ctx)
	if err != nil {
		log.Warn("Page count is not available", zap.Error(err))
		return
	}
	log.Debug("Document paginated", zap.Int("pages", total))
}

func printStatus(out io.Writer, label string, s *session.Session, showText bool) {
	fmt.Fprintf(out, "%-16s page %s  at %s\n", label, s.TopBar().Status(), s.Position())
	if !showText {
		return
	}
	if sc, ok := s.Rendition().(screen); ok {
		_, text := sc.Screen()
		fmt.Fprintf(out, "    %s\n", text)
	}
}

func runOpen(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := state.EnvFromContext(ctx).Log.Named("open")

	s, err := openSession(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		if e := s.Close(); e != nil {
			log.Warn("Unable to close session", zap.Error(e))
		}
	}()
	waitIndexed(ctx, s, log)

	if cmd.Bool("dump") {
		fmt.Fprint(os.Stdout, debug.Session(s))
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s (%s)\n", s.Name, s.Hash)
	printStatus(os.Stdout, "opened", s, cmd.Bool("text"))
	return nil
}

func runRead(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := state.EnvFromContext(ctx).Log.Named("read")

	if cmd.Args().Len() < 2 {
		return errors.New("no actions have been specified")
	}
	actions := make([]action, 0, cmd.Args().Len()-1)
	for _, arg := range cmd.Args().Slice()[1:] {
		a, err := parseAction(arg)
		if err != nil {
			return err
		}
		actions = append(actions, a)
	}

	s, err := openSession(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		if e := s.Close(); e != nil {
			log.Warn("Unable to close session", zap.Error(e))
		}
	}()
	waitIndexed(ctx, s, log)

	showText := cmd.Bool("text")
	printStatus(os.Stdout, "opened", s, showText)
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.run(ctx, s, time.Now()); err != nil {
			log.Warn("Action failed", zap.String("action", a.text), zap.Error(err))
		}
		printStatus(os.Stdout, a.text, s, showText)
	}
	return nil
}

func runTOC(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := state.EnvFromContext(ctx).Log.Named("toc")

	s, err := openSession(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		if e := s.Close(); e != nil {
			log.Warn("Unable to close session", zap.Error(e))
		}
	}()
	waitIndexed(ctx, s, log)

	toc := s.TOC()
	if len(toc) == 0 {
		fmt.Fprintln(os.Stdout, "document has no table of contents")
		return nil
	}
	printTOC(os.Stdout, s, toc)
	return nil
}

// printTOC lists entries numbered for toc:N action with pages when known.
func printTOC(out io.Writer, s *session.Session, toc []session.TOCEntry) {
	for i, e := range toc {
		page := "?"
		if p, ok := s.Index().PageOf(e.Locator); ok {
			page = strconv.Itoa(p + 1)
		}
		fmt.Fprintf(out, "%3d. %s%s  (page %s)\n", i+1, strings.Repeat("  ", e.Level), e.Label, page)
	}
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("reset")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	doc, err := fetch.New(log).Fetch(ctx, src)
	if err != nil {
		return err
	}
	if err := env.Store.Delete(ctx, kvstore.LocationsKey(doc.Hash), kvstore.CurrentLocationKey(doc.Hash)); err != nil {
		return fmt.Errorf("unable to reset reading state: %w", err)
	}
	log.Info("Reading state has been reset", zap.String("document", doc.Name), zap.String("hash", doc.Hash))
	return nil
}
