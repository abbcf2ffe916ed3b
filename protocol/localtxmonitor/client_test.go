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

package localtxmonitor_test

import (
	"fmt"
	"testing"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/internal/test"
	"github.com/blinklabs-io/ouroboros-client/internal/test/ouroboros_mock"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol"
	"github.com/blinklabs-io/ouroboros-client/protocol/handshake"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxmonitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// [{}, {}, true, null]
var testTx = test.DecodeHexString("84a0a0f5f6")

var conversationHandshakeAcquire = []ouroboros_mock.ConversationEntry{
	ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
	ouroboros_mock.ConversationEntryHandshakeNtCResponse,
	ouroboros_mock.ConversationEntryInput{
		ProtocolId:  localtxmonitor.ProtocolId,
		MessageType: localtxmonitor.MessageTypeAcquire,
	},
	ouroboros_mock.ConversationEntryOutput{
		ProtocolId: localtxmonitor.ProtocolId,
		Messages: []protocol.Message{
			localtxmonitor.NewMsgAcquired(12345),
		},
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

func TestAcquireNextTxRelease(t *testing.T) {
	conversation := append(
		conversationHandshakeAcquire,
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeNextTx,
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgReplyNextTx(ledger.EraIdConway, testTx),
			},
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeNextTx,
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgReplyNextTx(0, nil),
			},
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeRelease,
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeDone,
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			slot, err := client.Acquire(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint64(12345), slot)
			era, tx, err := client.NextTx(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint8(ledger.EraIdConway), era)
			assert.Equal(t, testTx, tx)
			_, tx, err = client.NextTx(t.Context())
			require.NoError(t, err)
			assert.Nil(t, tx)
			require.NoError(t, client.Release(t.Context()))
			assert.Equal(t, localtxmonitor.StateIdle, client.CurrentState())
			require.NoError(t, client.Done(t.Context()))
		},
	)
}

func TestHasTxGetSizes(t *testing.T) {
	txId := test.DecodeHexString(
		"a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90",
	)
	conversation := append(
		conversationHandshakeAcquire,
		ouroboros_mock.ConversationEntryInput{
			ProtocolId: localtxmonitor.ProtocolId,
			Message:    localtxmonitor.NewMsgHasTx(txId),
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgReplyHasTx(true),
			},
		},
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeGetSizes,
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgReplyGetSizes(1000, 200, 3),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.Acquire(t.Context())
			require.NoError(t, err)
			found, err := client.HasTx(t.Context(), txId)
			require.NoError(t, err)
			assert.True(t, found)
			sizes, err := client.GetSizes(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint32(1000), sizes.Capacity)
			assert.Equal(t, uint32(200), sizes.Size)
			assert.Equal(t, uint32(3), sizes.NumberOfTxs)
			assert.Equal(t, localtxmonitor.StateAcquired, client.CurrentState())
		},
	)
}

func TestReAcquire(t *testing.T) {
	conversation := append(
		conversationHandshakeAcquire,
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeAcquire,
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgAcquired(12400),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.Acquire(t.Context())
			require.NoError(t, err)
			slot, err := client.Acquire(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint64(12400), slot)
		},
	)
}

func TestQueryWithoutAcquire(t *testing.T) {
	runTest(
		t,
		conversationHandshakeAcquire[:2],
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.HasTx(t.Context(), []byte{0xab})
			require.ErrorIs(t, err, protocol.ErrAgencyViolation)
			_, err = client.GetSizes(t.Context())
			require.ErrorIs(t, err, protocol.ErrAgencyViolation)
			// The rejected sends leave the protocol untouched
			assert.Equal(t, localtxmonitor.StateIdle, client.CurrentState())
		},
	)
}

func TestAcquireTimeout(t *testing.T) {
	runTest(
		t,
		conversationHandshakeAcquire[:3],
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.Acquire(t.Context())
			require.ErrorIs(t, err, protocol.ErrTimeout)
		},
		ouroboros.WithLocalTxMonitorConfig(
			localtxmonitor.NewConfig(
				localtxmonitor.WithAcquireTimeout(50*time.Millisecond),
			),
		),
	)
}

func TestGetMeasuresNotSupported(t *testing.T) {
	runTest(
		t,
		conversationHandshakeAcquire,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.Acquire(t.Context())
			require.NoError(t, err)
			_, _, err = client.GetMeasures(t.Context())
			require.ErrorIs(t, err, localtxmonitor.ErrMeasuresNotSupported)
			assert.Equal(t, localtxmonitor.StateAcquired, client.CurrentState())
		},
	)
}

func TestGetMeasures(t *testing.T) {
	acceptMsg, err := handshake.NewMsgAcceptVersion(
		20+protocol.ProtocolVersionNtCOffset,
		protocol.VersionDataNtC15andUp{
			CborNetworkMagic: ouroboros_mock.MockNetworkMagic,
		},
	)
	require.NoError(t, err)
	conversation := []ouroboros_mock.ConversationEntry{
		ouroboros_mock.ConversationEntryHandshakeRequestGeneric,
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: handshake.ProtocolId,
			Messages:   []protocol.Message{acceptMsg},
		},
	}
	conversation = append(conversation, conversationHandshakeAcquire[2:]...)
	conversation = append(
		conversation,
		ouroboros_mock.ConversationEntryInput{
			ProtocolId:  localtxmonitor.ProtocolId,
			MessageType: localtxmonitor.MessageTypeGetMeasures,
		},
		ouroboros_mock.ConversationEntryOutput{
			ProtocolId: localtxmonitor.ProtocolId,
			Messages: []protocol.Message{
				localtxmonitor.NewMsgReplyGetMeasures(
					3,
					map[string]localtxmonitor.MeasureValue{
						"transaction_bytes": {Size: 200, Capacity: 1000},
					},
				),
			},
		},
	)
	runTest(
		t,
		conversation,
		func(t *testing.T, oConn *ouroboros.Connection) {
			client := oConn.LocalTxMonitor().Client
			_, err := client.Acquire(t.Context())
			require.NoError(t, err)
			txCount, measures, err := client.GetMeasures(t.Context())
			require.NoError(t, err)
			assert.Equal(t, uint32(3), txCount)
			require.Contains(t, measures, "transaction_bytes")
			assert.Equal(t, uint64(200), measures["transaction_bytes"].Size)
			assert.Equal(t, uint64(1000), measures["transaction_bytes"].Capacity)
		},
	)
}
