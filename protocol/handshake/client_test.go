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

package handshake_test

import (
	"errors"
	"testing"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/internal/test/ouroboros_mock"
	"github.com/blinklabs-io/ouroboros-client/muxer"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func mustRefuse(t *testing.T, reason ...any) protocol.Message {
	t.Helper()
	msg, err := handshake.NewMsgRefuse(reason)
	require.NoError(t, err)
	return msg
}

func mustEncode(t *testing.T, msg protocol.Message) []byte {
	t.Helper()
	data, err := cbor.Encode(msg)
	require.NoError(t, err)
	return data
}

func runHandshake(
	t *testing.T,
	conversation []ouroboros_mock.ConversationEntry,
	options ...ouroboros.ConnectionOptionFunc,
) (*ouroboros.Connection, error) {
	t.Helper()
	mockConn := ouroboros_mock.NewConnection(
		ouroboros_mock.ProtocolRoleClient,
		conversation,
	)
	options = append(
		[]ouroboros.ConnectionOptionFunc{
			ouroboros.WithConnection(mockConn),
			ouroboros.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
		},
		options...,
	)
	oConn, err := ouroboros.New(options...)
	// Wait for mock connection shutdown
	select {
	case mockErr, ok := <-mockConn.(*ouroboros_mock.Connection).ErrorChan():
		if ok {
			t.Fatal(mockErr.Error())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("did not complete within timeout")
	}
	if err != nil {
		_ = mockConn.Close()
	}
	return oConn, err
}

func TestClientNtCAccept(t *testing.T) {
	defer goleak.VerifyNone(t)
	oConn, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtCResponse,
		},
	)
	require.NoError(t, err)
	version, versionData := oConn.ProtocolVersion()
	assert.Equal(
		t,
		ouroboros_mock.MockProtocolVersionNtC+protocol.ProtocolVersionNtCOffset,
		version,
	)
	assert.Equal(t, ouroboros_mock.MockNetworkMagic, versionData.NetworkMagic())
	require.NoError(t, oConn.Close())
}

func TestClientNtNAccept(t *testing.T) {
	defer goleak.VerifyNone(t)
	oConn, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtNResponse,
		},
		ouroboros.WithNodeToNode(true),
		ouroboros.WithKeepAlive(false),
	)
	require.NoError(t, err)
	version, versionData := oConn.ProtocolVersion()
	assert.Equal(t, ouroboros_mock.MockProtocolVersionNtN, version)
	assert.Equal(t, ouroboros_mock.MockNetworkMagic, versionData.NetworkMagic())
	assert.Equal(t, protocol.DiffusionModeInitiatorOnly, versionData.DiffusionMode())
	require.NoError(t, oConn.Close())
}

func TestClientRefuseVersionMismatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: handshake.ProtocolId,
				Messages: []protocol.Message{
					mustRefuse(
						t,
						handshake.RefuseReasonVersionMismatch,
						[]uint16{1, 2, 3},
					),
				},
			},
		},
	)
	var refuseErr *handshake.RefuseError
	require.ErrorAs(t, err, &refuseErr)
	assert.Equal(t, handshake.RefuseReasonVersionMismatch, refuseErr.Reason)
	assert.Equal(t, []uint16{1, 2, 3}, refuseErr.Versions)
	assert.EqualError(t, refuseErr, "handshake: version mismatch, peer supports: 1, 2, 3")
}

func TestClientRefuseThenClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	// The peer hangs up right after refusing, and the refusal is still reported
	_, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: handshake.ProtocolId,
				Messages: []protocol.Message{
					mustRefuse(
						t,
						handshake.RefuseReasonVersionMismatch,
						[]uint16{1, 2, 3},
					),
				},
			},
			ouroboros_mock.ConversationEntryClose{},
		},
	)
	var refuseErr *handshake.RefuseError
	require.ErrorAs(t, err, &refuseErr)
	assert.Equal(t, handshake.RefuseReasonVersionMismatch, refuseErr.Reason)
	assert.False(t, errors.Is(err, muxer.ErrConnectionClosed))
}

func TestClientRefused(t *testing.T) {
	defer goleak.VerifyNone(t)
	version := ouroboros_mock.MockProtocolVersionNtC + protocol.ProtocolVersionNtCOffset
	_, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: handshake.ProtocolId,
				Messages: []protocol.Message{
					mustRefuse(
						t,
						handshake.RefuseReasonRefused,
						version,
						"wrong network",
					),
				},
			},
		},
	)
	var refuseErr *handshake.RefuseError
	require.ErrorAs(t, err, &refuseErr)
	assert.Equal(t, handshake.RefuseReasonRefused, refuseErr.Reason)
	assert.Equal(t, version, refuseErr.Version)
	assert.Equal(t, "wrong network", refuseErr.Message)
}

func TestClientQueryReply(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, err := runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: handshake.ProtocolId,
				Messages: []protocol.Message{
					&handshake.MsgQueryReply{
						MessageBase: protocol.MessageBase{
							MessageType: handshake.MessageTypeQueryReply,
						},
						VersionMap: map[uint16]cbor.RawMessage{},
					},
				},
			},
		},
	)
	assert.ErrorIs(t, err, handshake.ErrQueryReply)
}

func TestClientUnsupportedVersion(t *testing.T) {
	defer goleak.VerifyNone(t)
	msg, err := handshake.NewMsgAcceptVersion(
		3+protocol.ProtocolVersionNtCOffset,
		protocol.VersionDataNtC9to14(ouroboros_mock.MockNetworkMagic),
	)
	require.NoError(t, err)
	_, err = runHandshake(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryOutput{
				ProtocolId: handshake.ProtocolId,
				Messages:   []protocol.Message{msg},
			},
		},
	)
	assert.ErrorIs(t, err, handshake.ErrUnsupportedVersion)
}

func TestProposeVersionsEncoding(t *testing.T) {
	msg, err := handshake.NewMsgProposeVersions(
		protocol.ProtocolVersionMap{
			0x8009: protocol.VersionDataNtC9to14(764824073),
		},
	)
	require.NoError(t, err)
	// [0, {32777: 764824073}]
	assert.Equal(
		t,
		[]byte{0x82, 0x00, 0xa1, 0x19, 0x80, 0x09, 0x1a, 0x2d, 0x96, 0x4a, 0x09},
		mustEncode(t, msg),
	)
}
