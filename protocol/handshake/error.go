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

package handshake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/ouroboros-client/cbor"
)

// ErrQueryReply is returned when the peer answers with its version table instead of
// accepting a version
var ErrQueryReply = errors.New("handshake: peer replied with version query result")

// ErrUnsupportedVersion is returned when the peer accepts a version we did not propose
var ErrUnsupportedVersion = errors.New("handshake: peer accepted unsupported version")

// RefuseError is returned when the peer refuses all of our proposed versions
type RefuseError struct {
	Reason   uint64
	Versions []uint16
	Version  uint16
	Message  string
}

func (e *RefuseError) Error() string {
	switch e.Reason {
	case RefuseReasonVersionMismatch:
		versions := make([]string, 0, len(e.Versions))
		for _, v := range e.Versions {
			versions = append(versions, fmt.Sprintf("%d", v))
		}
		return fmt.Sprintf(
			"%s: version mismatch, peer supports: %s",
			ProtocolName,
			strings.Join(versions, ", "),
		)
	case RefuseReasonDecodeError:
		return fmt.Sprintf(
			"%s: decode error for version %d: %s",
			ProtocolName,
			e.Version,
			e.Message,
		)
	case RefuseReasonRefused:
		return fmt.Sprintf(
			"%s: refused version %d: %s",
			ProtocolName,
			e.Version,
			e.Message,
		)
	default:
		return fmt.Sprintf("%s: refused with unknown reason %d", ProtocolName, e.Reason)
	}
}

// newRefuseError builds a RefuseError from the raw refusal reason
func newRefuseError(reason []cbor.RawMessage) (*RefuseError, error) {
	if len(reason) == 0 {
		return nil, errors.New("empty refusal reason")
	}
	ret := &RefuseError{}
	if _, err := cbor.Decode(reason[0], &ret.Reason); err != nil {
		return nil, err
	}
	switch ret.Reason {
	case RefuseReasonVersionMismatch:
		if len(reason) != 2 {
			return nil, errors.New("malformed version mismatch reason")
		}
		if _, err := cbor.Decode(reason[1], &ret.Versions); err != nil {
			return nil, err
		}
	case RefuseReasonDecodeError, RefuseReasonRefused:
		if len(reason) != 3 {
			return nil, errors.New("malformed refusal reason")
		}
		if _, err := cbor.Decode(reason[1], &ret.Version); err != nil {
			return nil, err
		}
		// Accept either text or bytes for the message
		var msgBytes []byte
		if _, err := cbor.Decode(reason[2], &ret.Message); err != nil {
			if _, err := cbor.Decode(reason[2], &msgBytes); err != nil {
				return nil, err
			}
			ret.Message = string(msgBytes)
		}
	}
	return ret, nil
}
