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

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Teardown is the connection-wide failure signal shared by the muxer, the demuxer
// and every channel. The first call to Fail records the cause, closes the bearer
// and releases everything waiting on Done
type Teardown struct {
	closer   io.Closer
	doneChan chan struct{}
	once     sync.Once
	mu       sync.Mutex
	err      error
}

// NewTeardown returns a Teardown that closes the provided bearer on failure. The
// closer may be nil
func NewTeardown(closer io.Closer) *Teardown {
	return &Teardown{
		closer:   closer,
		doneChan: make(chan struct{}),
	}
}

// Fail tears the connection down. Only the first cause is kept
func (t *Teardown) Fail(cause error) {
	t.once.Do(func() {
		t.mu.Lock()
		switch {
		case cause == nil, errors.Is(cause, ErrConnectionClosed):
			if cause == nil {
				cause = ErrConnectionClosed
			}
			t.err = cause
		default:
			t.err = fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
		}
		t.mu.Unlock()
		close(t.doneChan)
		if t.closer != nil {
			_ = t.closer.Close()
		}
	})
}

// Done returns a channel that is closed once the connection has been torn down
func (t *Teardown) Done() <-chan struct{} {
	return t.doneChan
}

// Err returns nil while the connection is healthy and an error wrapping
// ErrConnectionClosed afterward
func (t *Teardown) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
