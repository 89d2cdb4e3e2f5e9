// SPDX-License-Identifier: LGPL-3.0-or-later

package clientfsm

import "time"

// InputKind identifies what a Client is asking its terminal frontend to
// collect, replacing the original's shared-future-plus-global-flag
// approach (`input_mode`) with a typed request/response contract. The
// terminal loop itself is out of scope; only this contract is.
type InputKind string

const (
	// InputPSK is requested on entry into tunnel_validating: the user
	// types the pre-shared secret agreed with their peer out of band.
	InputPSK InputKind = "psk"
	// InputAcceptDeny is requested on entry into request_received: the
	// user answers whether to accept the inbound connect request.
	InputAcceptDeny InputKind = "accept_deny"
)

// InputRequest is emitted by a Client (via its OnInputRequest hook) when
// it needs a value from the user to keep making progress.
type InputRequest struct {
	Kind    InputKind
	Peer    string
	Timeout time.Duration
}

// InputResult is fed back into a Client (via SubmitInput) once the
// frontend has collected InputRequest's answer, or timed out waiting
// for one.
type InputResult struct {
	Kind     InputKind
	Value    string
	TimedOut bool
}
