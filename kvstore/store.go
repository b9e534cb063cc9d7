// Package kvstore provides key-value storage for reading state shared by all
// sessions. Keys are scoped by document content hash, writes are last writer
// wins and entries never expire.
package kvstore

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("store is closed")

// Store is the capability reading session needs from persistent storage.
type Store interface {
	// Get returns value and true when key is present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// SettingsKey holds persisted layout choices, shared by all documents.
const SettingsKey = "viewer-settings"

// LocationsKey names cached location index of the document.
func LocationsKey(hash string) string {
	return hash + "-locations"
}

// CurrentLocationKey names last rendered position in the document.
func CurrentLocationKey(hash string) string {
	return hash + "-current-location"
}
