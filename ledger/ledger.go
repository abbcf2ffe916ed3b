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

// Package ledger provides the small set of Cardano ledger types a network client needs
// to present protocol payloads: era identifiers, addresses, transaction outputs and
// transaction IDs. Block and transaction bodies are otherwise kept as raw CBOR.
package ledger

import "fmt"

// Era IDs as used by the hard fork combinator
const (
	EraIdByron   = 0
	EraIdShelley = 1
	EraIdAllegra = 2
	EraIdMary    = 3
	EraIdAlonzo  = 4
	EraIdBabbage = 5
	EraIdConway  = 6
)

type Era struct {
	Id   uint8
	Name string
}

func (e Era) String() string {
	return e.Name
}

var eras = map[uint8]Era{
	EraIdByron:   {Id: EraIdByron, Name: "Byron"},
	EraIdShelley: {Id: EraIdShelley, Name: "Shelley"},
	EraIdAllegra: {Id: EraIdAllegra, Name: "Allegra"},
	EraIdMary:    {Id: EraIdMary, Name: "Mary"},
	EraIdAlonzo:  {Id: EraIdAlonzo, Name: "Alonzo"},
	EraIdBabbage: {Id: EraIdBabbage, Name: "Babbage"},
	EraIdConway:  {Id: EraIdConway, Name: "Conway"},
}

// GetEraById returns the era with the given ID, or nil if it is unknown
func GetEraById(eraId uint8) *Era {
	era, ok := eras[eraId]
	if !ok {
		return nil
	}
	return &era
}

// EraName returns the name of the era with the given ID, falling back to the numeric ID
func EraName(eraId uint) string {
	if eraId <= 255 {
		if era := GetEraById(uint8(eraId)); era != nil {
			return era.Name
		}
	}
	return fmt.Sprintf("era %d", eraId)
}
