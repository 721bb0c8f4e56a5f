////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package features gates actions client-side for incremental rollout. A
// disabled flag fails the same way whether or not the server would have
// accepted the action, before any request is sent.
package features

import (
	"sync"

	"gitlab.com/relaychat/client/faults"
)

type Flag string

const (
	Authentication  Flag = "authentication"
	Conversations   Flag = "conversations"
	Messages        Flag = "messages"
	MessageEdit     Flag = "messageEdit"
	MessageDelete   Flag = "messageDelete"
	Attachments     Flag = "attachments"
	UserProfile     Flag = "userProfile"
	EditProfile     Flag = "editProfile"
	RealtimeUpdates Flag = "realTimeUpdates"
	TypingIndicator Flag = "typingIndicator"
	UserSearch      Flag = "userSearch"
)

// Set is a mutable flag table. All functions are thread safe.
type Set struct {
	mux     sync.RWMutex
	enabled map[Flag]bool
}

// Defaults returns the current rollout state: core messaging on, write-side
// extras still gated off.
func Defaults() *Set {
	return &Set{enabled: map[Flag]bool{
		Authentication:  true,
		Conversations:   true,
		Messages:        true,
		MessageEdit:     false,
		MessageDelete:   false,
		Attachments:     false,
		UserProfile:     true,
		EditProfile:     false,
		RealtimeUpdates: true,
		TypingIndicator: false,
		UserSearch:      false,
	}}
}

// Enabled reports whether the flag is on. Unknown flags are off.
func (s *Set) Enabled(f Flag) bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.enabled[f]
}

// Check returns a FeatureDisabled fault when the flag is off.
func (s *Set) Check(f Flag) error {
	if !s.Enabled(f) {
		return faults.New(faults.FeatureDisabled,
			"feature "+string(f)+" is not ready")
	}
	return nil
}

// Enable switches a flag on.
func (s *Set) Enable(f Flag) {
	s.mux.Lock()
	s.enabled[f] = true
	s.mux.Unlock()
}

// Disable switches a flag off.
func (s *Set) Disable(f Flag) {
	s.mux.Lock()
	s.enabled[f] = false
	s.mux.Unlock()
}
