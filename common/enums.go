// Package common keeps enumerations shared by configuration, the reading
// session engine and renderers so neither has to import the other.
package common

//go:generate go tool go-enum --marshal --names --values

// Rendering strategy of a document.
// ENUM(paginated, scrolled)
type FlowMode string

// Spread requested from renderer for paginated flow.
// ENUM(auto, none)
type SpreadMode string

// Which input surface drives page turns.
// ENUM(auto, pointer, touch)
type NavigationMode string

// SpreadFor maps number of columns to renderer spread mode.
func SpreadFor(columns int) SpreadMode {
	if columns == 2 {
		return SpreadModeAuto
	}
	return SpreadModeNone
}
