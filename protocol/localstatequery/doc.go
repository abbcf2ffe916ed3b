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

// Package localstatequery implements the Ouroboros local state query mini-protocol.
//
// # State Machine
//
// The protocol follows this state flow:
//
//	Idle -> Acquiring -> Acquired -> Querying -> Acquired -> ...
//	             \-> Idle (on failure)   \-> Acquiring (on re-acquire)
//	                                     \-> Idle (on release)
//
// # Common Patterns
//
// Queries are era-polymorphic. Shelley-based queries need the current era, which the
// typed query helpers look up and cache for the lifetime of an acquired state.
// The typed helpers acquire the volatile tip for the duration of the call when no
// state is held.
//
// # Example Usage
//
//	client := conn.LocalStateQuery().Client
//	if err := client.Acquire(ctx, localstatequery.AcquireVolatileTip{}); err != nil {
//		return err
//	}
//	era, _ := client.GetCurrentEra(ctx)
//	epoch, _ := client.GetEpochNo(ctx)
//	_ = client.Release(ctx)
package localstatequery
