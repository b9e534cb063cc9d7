// Package session implements reading session engine of the viewer: stable
// page model over renderer locators, reading position persistence, input
// normalization into navigation intents, resize coalescing and page
// indicator state.
//
// Components never call each other directly on renderer activity, they all
// subscribe to the session Bus. Renderer relocation is the single signal
// which moves persisted position and page indicator.
package session
