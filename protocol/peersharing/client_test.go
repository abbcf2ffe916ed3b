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

package peersharing_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/internal/test/ouroboros_mock"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
	"github.com/blinklabs-io/ouroboros-client/protocol/peersharing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testPeers = []peersharing.PeerAddress{
	{IP: net.IP{192, 0, 2, 1}, Port: 3001},
	{IP: net.ParseIP("2001:db8::1"), Port: 6000},
}

func conversationHandshakePeerSharing(t *testing.T) []ouroboros_mock.ConversationEntry {
	acceptMsg, err := handshake.NewMsgAcceptVersion(
		ouroboros_mock.MockProtocolVersionNtN,
		protocol.VersionDataNtN13andUp{
			VersionDataNtN11to12: protocol.VersionDataNtN11to12{
				CborNetworkMagic:                       ouroboros_mock.MockNetworkMagic,
				CborInitiatorAndResponderDiffusionMode: protocol.DiffusionModeInitiatorOnly,
				CborPeerSharing:                        protocol.PeerSharingModePeerSharingPublic,
				CborQuery:                              protocol.QueryModeDisabled,
			},
		},
	)
	require.NoError(t, err)
	return []ouroboros_mock.ConversationEntry{
		ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: handshake.ProtocolId,
			Messages:   []protocol.Message{acceptMsg},
		},
	}
}

type testInnerFunc func(*testing.T, *ouroboros.Connection)

func runTest(
	t *testing.T,
	conversation []ouroboros_mock.ConversationEntry,
	innerFunc testInnerFunc,
) {
	defer goleak.VerifyNone(t)
	mockConn := ouroboros_mock.NewConnection(
		ouroboros_mock.ProtocolRoleClient,
		conversation,
	)
	// Async mock connection error handler
	asyncErrChan := make(chan error, 1)
	go func() {
		err := <-mockConn.(*ouroboros_mock.Connection).ErrorChan()
		if err != nil {
			asyncErrChan <- fmt.Errorf("received unexpected error: %w", err)
		}
		close(asyncErrChan)
	}()
	oConn, err := ouroboros.New(
		ouroboros.WithConnection(mockConn),
		ouroboros.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
		ouroboros.WithNodeToNode(true),
		ouroboros.WithKeepAlive(false),
		ouroboros.WithPeerSharing(true),
		ouroboros.WithPeerSharingConfig(
			peersharing.NewConfig(
				peersharing.WithTimeout(time.Second),
			),
		),
	)
	require.NoError(t, err)
	// Run test inner function
	innerFunc(t, oConn)
	// Wait for mock connection shutdown
	select {
	case err, ok := <-asyncErrChan:
		if ok {
			t.Fatal(err.Error())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("did not complete within timeout")
	}
	// Close Ouroboros connection
	require.NoError(t, oConn.Close())
}

func TestGetPeers(t *testing.T) {
	conversation := append(
		conversationHandshakePeerSharing(t),
		ouroboros_mock.ConversationEntryInput{
			ProtocolId: peersharing.ProtocolId,
			Message:    peersharing.NewMsgShareRequest(10),
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: peersharing.ProtocolId,
			Messages: []protocol.Message{
				peersharing.NewMsgSharePeers(testPeers),
			},
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  peersharing.ProtocolId,
			MessageType: peersharing.MessageTypeDone,
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			require.NotNil(t, oConn.PeerSharing())
			client := oConn.PeerSharing().Client
			peers, err := client.GetPeers(t.Context(), 10)
			require.NoError(t, err)
			require.Len(t, peers, 2)
			assert.Equal(t, "192.0.2.1:3001", peers[0].String())
			assert.Equal(t, "[2001:db8::1]:6000", peers[1].String())
			require.NoError(t, client.Done(t.Context()))
			assert.Equal(t, peersharing.StateDone, client.CurrentState())
		},
	)
}

func TestGetPeersTooMany(t *testing.T) {
	conversation := append(
		conversationHandshakePeerSharing(t),
		ouroboros_mock.ConversationEntryInput{
			ProtocolId: peersharing.ProtocolId,
			Message:    peersharing.NewMsgShareRequest(1),
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: peersharing.ProtocolId,
			Messages: []protocol.Message{
				peersharing.NewMsgSharePeers(testPeers),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.PeerSharing().Client
			_, err := client.GetPeers(t.Context(), 1)
			require.ErrorIs(t, err, protocol.ErrProtocolViolationInvalidMessage)
			// The protocol instance can't be used anymore
			_, err = client.GetPeers(t.Context(), 1)
			require.ErrorIs(t, err, protocol.ErrProtocolViolationInvalidMessage)
		},
	)
}

func TestPeerSharingNotNegotiated(t *testing.T) {
	runTest(
		t,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtNResponse,
		},
		func(t *testing.T, oConn *ouroboros.Connection) {
			assert.Nil(t, oConn.PeerSharing())
		},
	)
}
