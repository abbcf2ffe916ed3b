// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import "errors"

// ErrAgencyViolation is returned right away when a send or receive is attempted in a
// state where the other side holds agency
var ErrAgencyViolation = errors.New("agency violation")

// ErrDecode wraps message codec failures
var ErrDecode = errors.New("message decode error")

// ErrTimeout is returned when the peer doesn't respond within the state timeout
var ErrTimeout = errors.New("timeout waiting on transition")

// Protocol violation errors cause termination of the mini-protocol instance
var (
	ErrProtocolViolationInvalidMessage = errors.New(
		"protocol violation: invalid message received",
	)
	ErrProtocolViolationUnknownMessage = errors.New(
		"protocol violation: unknown message type received",
	)
)
