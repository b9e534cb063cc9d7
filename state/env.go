// Package state defines shared program state.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bookview/config"
	"bookview/kvstore"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg   *config.Config
	Log   *zap.Logger
	Store kvstore.Store

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// OpenStore opens reading state storage configured for the program: SQLite
// database when path is set, memory otherwise.
func (e *LocalEnv) OpenStore(ctx context.Context) error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	if len(e.Cfg.Store.Path) == 0 {
		log.Debug("Reading state will not be persisted")
		e.Store = kvstore.NewMemory()
		return nil
	}
	store, err := kvstore.OpenSQLite(ctx, e.Cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("unable to open reading state storage: %w", err)
	}
	e.Store = store
	return nil
}

// CloseStore releases storage, it is safe to call when store was never opened.
func (e *LocalEnv) CloseStore() error {
	if e.Store == nil {
		return nil
	}
	err := e.Store.Close()
	e.Store = nil
	return err
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
