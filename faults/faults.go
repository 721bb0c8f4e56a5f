////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package faults defines the client error taxonomy. Every failure a caller
// can observe maps to exactly one Kind so the presentation layer can give
// each a distinct outcome; silent swallowing is a defect.
package faults

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// Unknown - Fallback for errors produced outside this package.
	Unknown Kind = "UNKNOWN"
	// AuthenticationExpired - 401-class failure. Handled centrally by the
	// session gate (single renewal, then forced logout); feature code only
	// ever observes the logout signal.
	AuthenticationExpired Kind = "AUTHENTICATION_EXPIRED"
	// NetworkUnavailable - No response was received at all.
	NetworkUnavailable Kind = "NETWORK_UNAVAILABLE"
	// ValidationRejected - The server rejected the request (4xx other
	// than 401).
	ValidationRejected Kind = "VALIDATION_REJECTED"
	// ServerFault - The server failed (5xx).
	ServerFault Kind = "SERVER_FAULT"
	// FeatureDisabled - A client-side gate rejected the action before any
	// request was sent.
	FeatureDisabled Kind = "FEATURE_DISABLED"
	// RealtimeSendFailed - A channel acknowledgement reported failure or
	// timed out.
	RealtimeSendFailed Kind = "REALTIME_SEND_FAILED"
)

// Fault carries a Kind alongside a human-readable message and an optional
// cause.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Cause)
	}
	return f.Message
}

func (f *Fault) Unwrap() error { return f.Cause }

// New returns a Fault with no cause.
func New(kind Kind, message string) error {
	return &Fault{Kind: kind, Message: message}
}

// Wrap attaches a Kind and message to an underlying cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// KindOf classifies err. Errors that did not originate here report Unknown.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Unknown
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromStatus maps an HTTP status code to a Kind. Statuses below 400 do not
// map to a fault and return Unknown.
func FromStatus(status int) Kind {
	switch {
	case status == 401:
		return AuthenticationExpired
	case status >= 500:
		return ServerFault
	case status >= 400:
		return ValidationRejected
	default:
		return Unknown
	}
}
