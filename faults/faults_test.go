////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package faults

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := New(ServerFault, "backend exploded")
	wrapped := errors.Wrap(base, "fetching conversations")
	require.Equal(t, ServerFault, KindOf(wrapped))
	require.True(t, Is(wrapped, ServerFault))
	require.False(t, Is(wrapped, NetworkUnavailable))
}

func TestKindOf_Foreign(t *testing.T) {
	require.Equal(t, Unknown, KindOf(errors.New("not ours")))
}

func TestFromStatus(t *testing.T) {
	require.Equal(t, AuthenticationExpired, FromStatus(401))
	require.Equal(t, ValidationRejected, FromStatus(404))
	require.Equal(t, ValidationRejected, FromStatus(422))
	require.Equal(t, ServerFault, FromStatus(500))
	require.Equal(t, ServerFault, FromStatus(503))
	require.Equal(t, Unknown, FromStatus(204))
}

func TestFault_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	f := Wrap(NetworkUnavailable, "dial failed", cause)
	require.ErrorIs(t, f, cause)
	require.Contains(t, f.Error(), "dial failed")
	require.Contains(t, f.Error(), "connection refused")
}
