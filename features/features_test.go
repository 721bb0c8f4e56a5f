////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package features

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/relaychat/client/faults"
)

func TestSet_Defaults(t *testing.T) {
	s := Defaults()

	require.True(t, s.Enabled(Messages))
	require.True(t, s.Enabled(RealtimeUpdates))
	require.False(t, s.Enabled(Attachments))
	require.False(t, s.Enabled(TypingIndicator))
}

func TestSet_CheckFault(t *testing.T) {
	s := Defaults()

	require.NoError(t, s.Check(Messages))

	err := s.Check(Attachments)
	require.Error(t, err)
	require.Equal(t, faults.FeatureDisabled, faults.KindOf(err))
}

func TestSet_Toggle(t *testing.T) {
	s := Defaults()

	s.Enable(Attachments)
	require.NoError(t, s.Check(Attachments))

	s.Disable(Attachments)
	require.Error(t, s.Check(Attachments))
}

// Unknown flags are off, never an open gate.
func TestSet_UnknownFlag(t *testing.T) {
	s := Defaults()
	require.False(t, s.Enabled(Flag("whatIsThis")))
	require.Error(t, s.Check(Flag("whatIsThis")))
}
