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

package muxer

import "errors"

var (
	// ErrConnectionClosed is returned by every pending and future operation once the
	// underlying connection has failed or been shut down
	ErrConnectionClosed = errors.New("connection closed")
	// ErrUnknownProtocol is a fatal framing error for a segment whose protocol ID
	// has no subscriber
	ErrUnknownProtocol = errors.New("received segment for unknown protocol")
	// ErrPayloadLength is a fatal framing error for a stream that ends before the
	// payload declared in a segment header has been read
	ErrPayloadLength = errors.New("payload length does not match segment header")
	// ErrSegmentTooLarge is returned when building a segment from a payload that does
	// not fit in one
	ErrSegmentTooLarge = errors.New("payload exceeds maximum segment size")
	// ErrInvalidFrame is returned when the buffered bytes of a channel cannot be the
	// start of a valid message. The bytes stay buffered
	ErrInvalidFrame = errors.New("invalid message framing")
	// ErrAlreadySubscribed is returned when subscribing to a protocol twice
	ErrAlreadySubscribed = errors.New("protocol already subscribed")
	// ErrConcurrentReceive is returned when a second caller reads from a channel
	// while another read is in progress
	ErrConcurrentReceive = errors.New("concurrent receive on channel")
)
