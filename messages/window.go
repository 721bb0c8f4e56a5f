////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messages

import "sync"

// DefaultWindowSize matches the initial slice the chat view renders.
const DefaultWindowSize = 40

// Window reveals the tail of a timeline and grows toward older history as
// the user scrolls up. It never fetches; it only exposes more of what is
// already loaded. A paginating caller must fetch and merge through the
// timeline before growing past the loaded boundary.
type Window struct {
	mux  sync.Mutex
	size int
}

// NewWindow returns a window revealing the last size messages.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size}
}

// VisibleSlice returns the last windowSize entries of the ordered snapshot.
func (w *Window) VisibleSlice(entries []Entry) []Entry {
	w.mux.Lock()
	size := w.size
	w.mux.Unlock()

	if size >= len(entries) {
		return entries
	}
	return entries[len(entries)-size:]
}

// Grow widens the window by n, bounded by how much history is loaded.
// Returns the new size.
func (w *Window) Grow(n, loaded int) int {
	w.mux.Lock()
	defer w.mux.Unlock()

	w.size += n
	if w.size > loaded {
		w.size = loaded
	}
	return w.size
}

// CanGrow reports whether more already-loaded history exists beyond the
// window.
func (w *Window) CanGrow(loaded int) bool {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.size < loaded
}

// Size returns the current window size.
func (w *Window) Size() int {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.size
}
