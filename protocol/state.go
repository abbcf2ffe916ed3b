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

package protocol

import (
	"maps"
	"time"
)

// ProtocolStateAgency is the side that may send in a given state
type ProtocolStateAgency uint

const (
	AgencyNone   ProtocolStateAgency = 0
	AgencyClient ProtocolStateAgency = 1
	AgencyServer ProtocolStateAgency = 2
)

func (a ProtocolStateAgency) String() string {
	switch a {
	case AgencyClient:
		return "client"
	case AgencyServer:
		return "server"
	default:
		return "none"
	}
}

type State struct {
	Id   uint
	Name string
}

func NewState(id uint, name string) State {
	return State{
		Id:   id,
		Name: name,
	}
}

func (s State) String() string {
	return s.Name
}

type StateTransition struct {
	MsgType   uint8
	NewState  State
	MatchFunc StateTransitionMatchFunc
}

// StateTransitionMatchFunc allows a transition to depend on message content
type StateTransitionMatchFunc func(Message) bool

type StateMapEntry struct {
	Agency      ProtocolStateAgency
	Transitions []StateTransition
	Timeout     time.Duration
}

type StateMap map[State]StateMapEntry

// Copy returns a copy of the state map. This is mostly for convenience,
// since we need to copy the state map in various places
func (s StateMap) Copy() StateMap {
	return maps.Clone(s)
}

// transition returns the state that msg leads to from state, if any
func (s StateMap) transition(state State, msg Message) (State, bool) {
	entry, ok := s[state]
	if !ok {
		return State{}, false
	}
	for _, t := range entry.Transitions {
		if t.MsgType != msg.Type() {
			continue
		}
		if t.MatchFunc != nil && !t.MatchFunc(msg) {
			continue
		}
		return t.NewState, true
	}
	return State{}, false
}
