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

package keepalive_test

import (
	"fmt"
	"testing"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/internal/test/ouroboros_mock"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/keepalive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var conversationHandshakeKeepAlive = []ouroboros_mock.ConversationEntry{
	ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
	ouroboros_mock.ConversationEntryHandshakeNtNResponse,
	ouroboros_mock.ConversationEntryInput{
		ProtocolId: keepalive.ProtocolId,
		Message:    keepalive.NewMsgKeepAlive(0x1234),
	},
}

type testInnerFunc func(*testing.T, *ouroboros.Connection)

func runTest(
	t *testing.T,
	conversation []ouroboros_mock.ConversationEntry,
	innerFunc testInnerFunc,
	options ...ouroboros.ConnectionOptionFunc,
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
	opts := []ouroboros.ConnectionOptionFunc{
		ouroboros.WithConnection(mockConn),
		ouroboros.WithNetworkMagic(ouroboros_mock.MockNetworkMagic),
		ouroboros.WithNodeToNode(true),
		ouroboros.WithKeepAlive(false),
		ouroboros.WithKeepAliveConfig(
			keepalive.NewConfig(
				keepalive.WithCookie(0x1234),
			),
		),
	}
	opts = append(opts, options...)
	oConn, err := ouroboros.New(opts...)
	require.NoError(t, err)
	// Async error handler
	go func() {
		err, ok := <-oConn.ErrorChan()
		if !ok {
			return
		}
		// We can't call t.Fatalf() from a different Goroutine, so we panic instead
		panic(fmt.Sprintf("unexpected Ouroboros error: %s", err))
	}()
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

func TestKeepAlive(t *testing.T) {
	conversation := append(
		conversationHandshakeKeepAlive,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			Messages: []protocol.Message{
				keepalive.NewMsgKeepAliveResponse(0x1234),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.KeepAlive().Client
			_, err := client.KeepAlive(t.Context())
			require.NoError(t, err)
			assert.Equal(t, keepalive.StateClient, client.CurrentState())
		},
	)
}

func TestKeepAliveCookieMismatch(t *testing.T) {
	conversation := append(
		conversationHandshakeKeepAlive,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			Messages: []protocol.Message{
				keepalive.NewMsgKeepAliveResponse(0x1235),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.KeepAlive().Client
			_, err := client.KeepAlive(t.Context())
			require.ErrorIs(t, err, keepalive.ErrCookieMismatch)
			// The protocol instance can't be used anymore
			_, err = client.KeepAlive(t.Context())
			require.ErrorIs(t, err, keepalive.ErrCookieMismatch)
		},
	)
}

func TestKeepAliveCookieOutOfRange(t *testing.T) {
	conversation := append(
		conversationHandshakeKeepAlive,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			// [1, 65536]
			Payload: []byte{0x82, 0x01, 0x1a, 0x00, 0x01, 0x00, 0x00},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			_, err := oConn.KeepAlive().Client.KeepAlive(t.Context())
			require.ErrorIs(t, err, keepalive.ErrCookieOutOfRange)
		},
	)
}

func TestKeepAliveTimeout(t *testing.T) {
	runTest(
		t,
		conversationHandshakeKeepAlive,
		func(t *testing.T, oConn *ouroboros.Connection) {
			_, err := oConn.KeepAlive().Client.KeepAlive(t.Context())
			require.ErrorIs(t, err, protocol.ErrTimeout)
		},
		ouroboros.WithKeepAliveConfig(
			keepalive.NewConfig(
				keepalive.WithCookie(0x1234),
				keepalive.WithTimeout(50*time.Millisecond),
			),
		),
	)
}

func TestKeepAliveServerDone(t *testing.T) {
	conversation := append(
		conversationHandshakeKeepAlive,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			Messages: []protocol.Message{
				keepalive.NewMsgDone(),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.KeepAlive().Client
			_, err := client.KeepAlive(t.Context())
			require.ErrorIs(t, err, keepalive.ErrServerDone)
			assert.True(t, client.IsDone())
		},
	)
}

func TestKeepAliveDone(t *testing.T) {
	conversation := []ouroboros_mock.ConversationEntry{
		ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
		ouroboros_mock.ConversationEntryHandshakeNtNResponse,
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  keepalive.ProtocolId,
			MessageType: keepalive.MessageTypeDone,
		},
	}
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.KeepAlive().Client
			require.NoError(t, client.Done(t.Context()))
			_, err := client.KeepAlive(t.Context())
			require.ErrorIs(t, err, protocol.ErrAgencyViolation)
		},
	)
}

func TestPeriodicKeepAlive(t *testing.T) {
	conversation := append(
		conversationHandshakeKeepAlive,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			Messages: []protocol.Message{
				keepalive.NewMsgKeepAliveResponse(0x1234),
			},
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId: keepalive.ProtocolId,
			Message:    keepalive.NewMsgKeepAlive(0x1234),
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: keepalive.ProtocolId,
			Messages: []protocol.Message{
				keepalive.NewMsgKeepAliveResponse(0x1234),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {},
		ouroboros.WithKeepAlive(true),
		ouroboros.WithKeepAliveConfig(
			keepalive.NewConfig(
				keepalive.WithCookie(0x1234),
				keepalive.WithPeriod(20*time.Millisecond),
			),
		),
	)
}
