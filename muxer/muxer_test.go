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

package muxer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/ouroboros-client/muxer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// testConn runs a muxer and demuxer over one end of a net.Pipe. The other end is
// driven directly by the test
type testConn struct {
	muxer    *muxer.Muxer
	demuxer  *muxer.Demuxer
	teardown *muxer.Teardown
	peer     net.Conn
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	muxErr   error
	demuxErr error
}

func newTestConn() *testConn {
	local, peer := net.Pipe()
	teardown := muxer.NewTeardown(local)
	tc := &testConn{
		muxer:    muxer.NewMuxer(local, teardown),
		demuxer:  muxer.NewDemuxer(local, teardown),
		teardown: teardown,
		peer:     peer,
	}
	return tc
}

func (tc *testConn) start() {
	ctx, cancel := context.WithCancel(context.Background())
	tc.cancel = cancel
	tc.wg.Add(2)
	go func() {
		defer tc.wg.Done()
		tc.muxErr = tc.muxer.Run(ctx)
	}()
	go func() {
		defer tc.wg.Done()
		tc.demuxErr = tc.demuxer.Run(ctx)
	}()
}

func (tc *testConn) close() {
	tc.cancel()
	_ = tc.peer.Close()
	tc.wg.Wait()
}

// send writes a segment from the responder side of the peer. It is safe to call
// from another goroutine
func (tc *testConn) send(t *testing.T, protocolId uint16, payload []byte) {
	_, err := tc.peer.Write(segmentBytes(t, protocolId, payload))
	assert.NoError(t, err)
}

// segmentBytes encodes a responder segment. It is safe to call from another goroutine
func segmentBytes(t *testing.T, protocolId uint16, payload []byte) []byte {
	segment, err := muxer.NewSegment(protocolId, payload, true)
	if !assert.NoError(t, err) {
		return nil
	}
	return segment.Bytes()
}

func (tc *testConn) readSegment(t *testing.T) *muxer.Segment {
	t.Helper()
	headerBuf := make([]byte, muxer.SegmentHeaderLength)
	_, err := io.ReadFull(tc.peer, headerBuf)
	require.NoError(t, err)
	header, ok := muxer.TryDecodeHeader(headerBuf)
	require.True(t, ok)
	payload := make([]byte, header.PayloadLength)
	_, err = io.ReadFull(tc.peer, payload)
	require.NoError(t, err)
	return &muxer.Segment{SegmentHeader: header, Payload: payload}
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
	}
	return nil
}

func TestDemuxerHeaderSplitAcrossReads(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	inbound, err := tc.demuxer.Subscribe(1, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	tc.start()
	defer tc.close()
	data := segmentBytes(t, 1, []byte{0xab, 0xcd})
	_, err = tc.peer.Write(data[:2])
	require.NoError(t, err)
	_, err = tc.peer.Write(data[2:])
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0xcd}, receive(t, inbound))
}

func TestDemuxerPayloadSplitAcrossReads(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	inbound, err := tc.demuxer.Subscribe(3, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	tc.start()
	defer tc.close()
	payload := bytes.Repeat([]byte{0x42}, 5000)
	data := segmentBytes(t, 3, payload)
	for len(data) > 0 {
		n := min(len(data), 777)
		_, err = tc.peer.Write(data[:n])
		require.NoError(t, err)
		data = data[n:]
	}
	assert.Equal(t, payload, receive(t, inbound))
}

func TestDemuxerRouting(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	inboundA, err := tc.demuxer.Subscribe(2, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	inboundB, err := tc.demuxer.Subscribe(3, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	tc.start()
	defer tc.close()
	var expectedA, expectedB bytes.Buffer
	order := []uint16{2, 3, 3, 2, 2, 3, 2, 3, 3, 3, 2}
	// Several segments in a single write, interleaved across protocols
	var wire bytes.Buffer
	for i, protocolId := range order {
		payload := bytes.Repeat([]byte{byte(i)}, i+1)
		if protocolId == 2 {
			expectedA.Write(payload)
		} else {
			expectedB.Write(payload)
		}
		wire.Write(segmentBytes(t, protocolId, payload))
	}
	go func() {
		_, _ = tc.peer.Write(wire.Bytes())
	}()
	var gotA, gotB bytes.Buffer
	for gotA.Len() < expectedA.Len() || gotB.Len() < expectedB.Len() {
		select {
		case data := <-inboundA:
			gotA.Write(data)
		case data := <-inboundB:
			gotB.Write(data)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for payloads")
		}
	}
	assert.Equal(t, expectedA.Bytes(), gotA.Bytes())
	assert.Equal(t, expectedB.Bytes(), gotB.Bytes())
}

func TestDemuxerUnknownProtocol(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	_, err := tc.demuxer.Subscribe(2, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	tc.start()
	defer tc.close()
	go func() {
		_, _ = tc.peer.Write(segmentBytes(t, 9, []byte{0x80}))
	}()
	select {
	case <-tc.teardown.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not torn down")
	}
	tc.wg.Wait()
	assert.ErrorIs(t, tc.demuxErr, muxer.ErrUnknownProtocol)
	assert.ErrorIs(t, tc.demuxErr, muxer.ErrConnectionClosed)
	assert.ErrorIs(t, tc.teardown.Err(), muxer.ErrUnknownProtocol)
}

func TestDemuxerTruncatedSegment(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	_, err := tc.demuxer.Subscribe(2, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	tc.start()
	defer tc.close()
	data := segmentBytes(t, 2, []byte{0x82, 0x00, 0x01})
	go func() {
		_, _ = tc.peer.Write(data[:len(data)-1])
		_ = tc.peer.Close()
	}()
	select {
	case <-tc.teardown.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not torn down")
	}
	tc.wg.Wait()
	assert.ErrorIs(t, tc.demuxErr, muxer.ErrPayloadLength)
	assert.ErrorIs(t, tc.demuxErr, muxer.ErrConnectionClosed)
}

// eofReader hands out all of its data together with io.EOF
type eofReader struct {
	data []byte
}

func (r *eofReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, io.EOF
}

func TestDemuxerSegmentWithEOF(t *testing.T) {
	defer goleak.VerifyNone(t)
	teardown := muxer.NewTeardown(nil)
	d := muxer.NewDemuxer(&eofReader{data: segmentBytes(t, 2, []byte{0xab, 0xcd})}, teardown)
	inbound, err := d.Subscribe(2, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	err = d.Run(context.Background())
	// The segment that came with the end of the stream is still delivered
	assert.Equal(t, []byte{0xab, 0xcd}, receive(t, inbound))
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, muxer.ErrConnectionClosed)
	assert.False(t, errors.Is(err, muxer.ErrPayloadLength))
}

func TestDemuxerDuplicateSubscribe(t *testing.T) {
	d := muxer.NewDemuxer(bytes.NewReader(nil), muxer.NewTeardown(nil))
	_, err := d.Subscribe(8, muxer.ProtocolRoleInitiator)
	require.NoError(t, err)
	_, err = d.Subscribe(8, muxer.ProtocolRoleInitiator)
	assert.ErrorIs(t, err, muxer.ErrAlreadySubscribed)
	// The other direction of the same protocol is a separate queue
	_, err = d.Subscribe(8, muxer.ProtocolRoleResponder)
	assert.NoError(t, err)
}

func TestMuxerSplitsLargePayload(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	tc.start()
	defer tc.close()
	payload := make([]byte, 70000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(
		t,
		tc.muxer.Enqueue(context.Background(), 3, muxer.ProtocolRoleInitiator, payload),
	)
	first := tc.readSegment(t)
	second := tc.readSegment(t)
	assert.Equal(t, uint16(3), first.ProtocolId)
	assert.Equal(t, uint16(3), second.ProtocolId)
	assert.True(t, first.IsRequest())
	assert.Equal(t, uint16(muxer.SegmentMaxPayloadLength), first.PayloadLength)
	assert.Equal(t, uint16(70000-muxer.SegmentMaxPayloadLength), second.PayloadLength)
	assert.Equal(t, payload, append(first.Payload, second.Payload...))
}

func TestMuxerOrdering(t *testing.T) {
	defer goleak.VerifyNone(t)
	tc := newTestConn()
	tc.start()
	defer tc.close()
	ctx := context.Background()
	require.NoError(t, tc.muxer.Enqueue(ctx, 2, muxer.ProtocolRoleInitiator, []byte{1}))
	require.NoError(t, tc.muxer.Enqueue(ctx, 8, muxer.ProtocolRoleInitiator, []byte{2}))
	require.NoError(t, tc.muxer.Enqueue(ctx, 2, muxer.ProtocolRoleInitiator, []byte{3}))
	for _, expected := range []struct {
		protocolId uint16
		payload    byte
	}{{2, 1}, {8, 2}, {2, 3}} {
		segment := tc.readSegment(t)
		assert.Equal(t, expected.protocolId, segment.GetProtocolId())
		assert.Equal(t, []byte{expected.payload}, segment.Payload)
	}
}

func TestMuxerFlush(t *testing.T) {
	defer goleak.VerifyNone(t)
	var wire bytes.Buffer
	teardown := muxer.NewTeardown(nil)
	m := muxer.NewMuxer(&wire, teardown)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Run(ctx)
	}()
	require.NoError(t, m.Enqueue(ctx, 2, muxer.ProtocolRoleInitiator, []byte{1, 2}))
	require.NoError(t, m.Enqueue(ctx, 8, muxer.ProtocolRoleInitiator, []byte{3}))
	require.NoError(t, m.Flush(ctx))
	// Both segments are on the wire once Flush returns
	assert.Equal(t, 2*muxer.SegmentHeaderLength+3, wire.Len())
	first, consumed, ok := muxer.TryDecodeSegment(wire.Bytes())
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, first.Payload)
	second, _, ok := muxer.TryDecodeSegment(wire.Bytes()[consumed:])
	require.True(t, ok)
	assert.Equal(t, uint16(8), second.GetProtocolId())
	cancel()
	<-errChan
	assert.ErrorIs(t, m.Flush(context.Background()), muxer.ErrConnectionClosed)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestMuxerWriteErrorIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	teardown := muxer.NewTeardown(nil)
	m := muxer.NewMuxer(failingWriter{}, teardown)
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Run(context.Background())
	}()
	require.NoError(
		t,
		m.Enqueue(context.Background(), 2, muxer.ProtocolRoleInitiator, []byte{0x80}),
	)
	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, muxer.ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("muxer did not stop after write error")
	}
	err := m.Enqueue(context.Background(), 2, muxer.ProtocolRoleInitiator, []byte{0x80})
	assert.ErrorIs(t, err, muxer.ErrConnectionClosed)
}

func TestMuxerEnqueueCancelled(t *testing.T) {
	teardown := muxer.NewTeardown(nil)
	// No Run loop and no queue space, so Enqueue can only finish by cancellation
	m := muxer.NewMuxer(io.Discard, teardown, muxer.WithMuxerQueueSize(0))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := m.Enqueue(ctx, 2, muxer.ProtocolRoleInitiator, []byte{0x80})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, teardown.Err())
}
