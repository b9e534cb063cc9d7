package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"bookview/common"
	"bookview/kvstore"
)

// Layout is the persisted layout choice.
type Layout struct {
	Flow    common.FlowMode `json:"flow"`
	Columns int             `json:"columns"`
}

func DefaultLayout() Layout {
	return Layout{Flow: common.FlowModePaginated, Columns: 1}
}

// Valid reports if layout could be applied.
func (l Layout) Valid() bool {
	return l.Flow.IsValid() && (l.Columns == 1 || l.Columns == 2)
}

// ApplyLayout sets flow and, for paginated flow, spread matching columns.
func ApplyLayout(target LayoutApplier, l Layout) error {
	if err := target.Flow(l.Flow); err != nil {
		return fmt.Errorf("unable to set flow %s: %w", l.Flow, err)
	}
	if l.Flow != common.FlowModePaginated {
		return nil
	}
	spread := common.SpreadFor(l.Columns)
	if err := target.Spread(spread); err != nil {
		return fmt.Errorf("unable to set spread %s: %w", spread, err)
	}
	return nil
}

// LoadLayout returns persisted layout merged over defaults. Unreadable or
// invalid settings fall back to defaults.
func LoadLayout(ctx context.Context, store kvstore.Store, defaults Layout, log *zap.Logger) Layout {
	raw, ok, err := store.Get(ctx, kvstore.SettingsKey)
	if err != nil {
		log.Warn("Unable to load viewer settings, using defaults", zap.Error(err))
		return defaults
	}
	if !ok {
		return defaults
	}
	l := defaults
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		log.Warn("Unable to decode viewer settings, using defaults", zap.Error(fmt.Errorf("%w: %w", ErrPersistenceRead, err)))
		return defaults
	}
	if !l.Valid() {
		log.Warn("Ignoring invalid viewer settings", zap.String("flow", string(l.Flow)), zap.Int("columns", l.Columns))
		return defaults
	}
	return l
}

// SaveLayout persists layout choice for future sessions.
func SaveLayout(ctx context.Context, store kvstore.Store, l Layout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, kvstore.SettingsKey, string(data)); err != nil {
		return fmt.Errorf("unable to save viewer settings: %w", err)
	}
	return nil
}
