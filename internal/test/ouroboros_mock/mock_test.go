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

package ouroboros_mock_test

import (
	"testing"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/internal/test/ouroboros_mock"
	"github.com/blinklabs-io/ouroboros-client/protocol/keepalive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Basic test of conversation mock functionality
func TestBasic(t *testing.T) {
	defer goleak.VerifyNone(t)
	mockConn := ouroboros_mock.NewConnection(
		ouroboros_mock.ProtocolRoleClient,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtCResponse,
		},
	)
	oConn, err := ouroboros.New(
		ouroboros.WithConnection(mockConn),
		ouroboros.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
	)
	require.NoError(t, err)
	waitForMock(t, mockConn)
	// Close Ouroboros connection
	require.NoError(t, oConn.Close())
}

func TestUnexpectedMessageType(t *testing.T) {
	defer goleak.VerifyNone(t)
	mockConn := ouroboros_mock.NewConnection(
		ouroboros_mock.ProtocolRoleClient,
		[]ouroboros_mock.ConversationEntry{
			ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
			ouroboros_mock.ConversationEntryHandshakeNtNResponse,
			ouroboros_mock.ConversationEntryInput{
				ProtocolId:  keepalive.ProtocolId,
				MessageType: keepalive.MessageTypeDone,
			},
		},
	)
	oConn, err := ouroboros.New(
		ouroboros.WithConnection(mockConn),
		ouroboros.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
		ouroboros.WithNodeToNode(true),
		ouroboros.WithKeepAlive(false),
	)
	require.NoError(t, err)
	go func() {
		_, _ = oConn.KeepAlive().Client.KeepAlive(t.Context())
	}()
	select {
	case err, ok := <-mockConn.(*ouroboros_mock.Connection).ErrorChan():
		require.True(t, ok, "expected a conversation error")
		assert.ErrorContains(t, err, "expected 2, got 0")
	case <-time.After(2 * time.Second):
		t.Fatal("did not complete within timeout")
	}
	require.NoError(t, oConn.Close())
}

func waitForMock(t *testing.T, mockConn any) {
	t.Helper()
	select {
	case err, ok := <-mockConn.(*ouroboros_mock.Connection).ErrorChan():
		if ok {
			t.Fatal(err.Error())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("did not complete within timeout")
	}
}
