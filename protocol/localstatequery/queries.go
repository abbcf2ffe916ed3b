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

package localstatequery

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol/common"
)

// Query types
const (
	QueryTypeBlock        = 0
	QueryTypeSystemStart  = 1
	QueryTypeChainBlockNo = 2
	QueryTypeChainPoint   = 3

	// Block query sub-types
	QueryTypeShelley  = 0
	QueryTypeHardFork = 2

	// Hard fork query sub-types
	QueryTypeHardForkEraHistory = 0
	QueryTypeHardForkCurrentEra = 1

	// Shelley query sub-types
	QueryTypeShelleyLedgerTip     = 0
	QueryTypeShelleyEpochNo       = 1
	QueryTypeShelleyUtxoByAddress = 6
	QueryTypeShelleyUtxoWhole     = 7
	QueryTypeShelleyUtxoByTxin    = 15
)

func buildQuery(queryType int, params ...any) []any {
	ret := []any{queryType}
	if len(params) > 0 {
		ret = append(ret, params...)
	}
	return ret
}

func buildHardForkQuery(queryType int, params ...any) []any {
	ret := buildQuery(
		QueryTypeBlock,
		buildQuery(
			QueryTypeHardFork,
			buildQuery(
				queryType,
				params...,
			),
		),
	)
	return ret
}

func buildShelleyQuery(era int, queryType int, params ...any) []any {
	ret := buildQuery(
		QueryTypeBlock,
		buildQuery(
			QueryTypeShelley,
			buildQuery(
				era,
				buildQuery(
					queryType,
					params...,
				),
			),
		),
	)
	return ret
}

type SystemStartResult struct {
	cbor.StructAsArray
	Year        int
	Day         int
	Picoseconds uint64
}

// UtxoId identifies a transaction output by transaction hash and output index
type UtxoId struct {
	cbor.StructAsArray
	Hash ledger.Blake2b256
	Idx  uint32
}

func (u UtxoId) String() string {
	return fmt.Sprintf("%s#%d", u.Hash.String(), u.Idx)
}

// ParseUtxoId parses a UtxoId from the "<tx hash hex>#<index>" form
func ParseUtxoId(s string) (UtxoId, error) {
	hashHex, idxStr, ok := strings.Cut(s, "#")
	if !ok {
		return UtxoId{}, fmt.Errorf("invalid UTxO ID %q: missing '#'", s)
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return UtxoId{}, fmt.Errorf("invalid UTxO ID %q: %w", s, err)
	}
	if len(hash) != ledger.Blake2b256Size {
		return UtxoId{}, fmt.Errorf("invalid UTxO ID %q: bad hash length %d", s, len(hash))
	}
	idx, err := strconv.ParseUint(idxStr, 10, 32)
	if err != nil {
		return UtxoId{}, fmt.Errorf("invalid UTxO ID %q: %w", s, err)
	}
	return UtxoId{
		Hash: ledger.NewBlake2b256(hash),
		Idx:  uint32(idx),
	}, nil
}

// UTxOsResult maps each UTxO to its output
type UTxOsResult struct {
	Results map[UtxoId]ledger.TransactionOutput
}

// GetCurrentEra returns the current era ID
func (c *Client) GetCurrentEra(ctx context.Context) (int, error) {
	c.Logger().Debug("calling GetCurrentEra()")
	var era int
	err := c.withAcquired(ctx, func() error {
		var err error
		era, err = c.getCurrentEra(ctx)
		return err
	})
	return era, err
}

// GetSystemStart returns the SystemStart value
func (c *Client) GetSystemStart(ctx context.Context) (*SystemStartResult, error) {
	c.Logger().Debug("calling GetSystemStart()")
	var result SystemStartResult
	err := c.withAcquired(ctx, func() error {
		return c.runQuery(ctx, buildQuery(QueryTypeSystemStart), &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetChainBlockNo returns the latest block number. The origin is reported as 0
func (c *Client) GetChainBlockNo(ctx context.Context) (uint64, error) {
	c.Logger().Debug("calling GetChainBlockNo()")
	if c.version > 0 && c.version < 10 {
		return 0, ErrQueryNotSupported
	}
	// The result is [1, blockNo], or [0] at the origin
	var result []uint64
	err := c.withAcquired(ctx, func() error {
		return c.runQuery(ctx, buildQuery(QueryTypeChainBlockNo), &result)
	})
	if err != nil {
		return 0, err
	}
	if len(result) == 2 {
		return result[1], nil
	}
	return 0, nil
}

// GetChainPoint returns the point of the current chain tip
func (c *Client) GetChainPoint(ctx context.Context) (common.Point, error) {
	c.Logger().Debug("calling GetChainPoint()")
	if c.version > 0 && c.version < 10 {
		return common.Point{}, ErrQueryNotSupported
	}
	var result common.Point
	err := c.withAcquired(ctx, func() error {
		return c.runQuery(ctx, buildQuery(QueryTypeChainPoint), &result)
	})
	if err != nil {
		return common.Point{}, err
	}
	return result, nil
}

// GetEpochNo returns the current epoch number
func (c *Client) GetEpochNo(ctx context.Context) (uint64, error) {
	c.Logger().Debug("calling GetEpochNo()")
	var result uint64
	err := c.withAcquired(ctx, func() error {
		return c.runShelleyQuery(ctx, QueryTypeShelleyEpochNo, &result)
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// GetUTxOByAddress returns the UTxOs for the given addresses. Addresses use their
// bech32 form, or base58 for Byron addresses
func (c *Client) GetUTxOByAddress(
	ctx context.Context,
	addrs []string,
) (*UTxOsResult, error) {
	c.Logger().Debug(
		"calling GetUTxOByAddress()",
		"addresses", addrs,
	)
	addrList := make([]ledger.Address, 0, len(addrs))
	for _, addr := range addrs {
		tmpAddr, err := ledger.NewAddress(addr)
		if err != nil {
			return nil, err
		}
		addrList = append(addrList, tmpAddr)
	}
	var result UTxOsResult
	err := c.withAcquired(ctx, func() error {
		return c.runShelleyQuery(
			ctx,
			QueryTypeShelleyUtxoByAddress,
			&result.Results,
			addrList,
		)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUTxOByTxIn returns the outputs for the given UTxO IDs that are still unspent
func (c *Client) GetUTxOByTxIn(
	ctx context.Context,
	txIns []UtxoId,
) (*UTxOsResult, error) {
	c.Logger().Debug(
		"calling GetUTxOByTxIn()",
		"count", len(txIns),
	)
	var result UTxOsResult
	err := c.withAcquired(ctx, func() error {
		return c.runShelleyQuery(
			ctx,
			QueryTypeShelleyUtxoByTxin,
			&result.Results,
			txIns,
		)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// withAcquired runs fn against the acquired state. In the Idle state it acquires the
// volatile tip for the duration of fn
func (c *Client) withAcquired(ctx context.Context, fn func() error) error {
	if c.CurrentState() != StateIdle {
		return fn()
	}
	if err := c.Acquire(ctx, AcquireVolatileTip{}); err != nil {
		return err
	}
	err := fn()
	if c.CurrentState() == StateAcquired {
		if releaseErr := c.Release(ctx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}
	return err
}

func (c *Client) runQuery(ctx context.Context, query any, result any) error {
	resultCbor, err := c.Query(ctx, query)
	if err != nil {
		return err
	}
	if _, err := cbor.Decode(resultCbor, result); err != nil {
		return fmt.Errorf("decode query result: %w", err)
	}
	return nil
}

// runShelleyQuery runs an era-specific query against the current era. Its result is
// wrapped in a single item list, while an era mismatch is reported as a two item list
func (c *Client) runShelleyQuery(
	ctx context.Context,
	queryType int,
	result any,
	params ...any,
) error {
	era, err := c.getCurrentEra(ctx)
	if err != nil {
		return err
	}
	if era == ledger.EraIdByron {
		return fmt.Errorf("%w: query not available in the Byron era", ErrEraMismatch)
	}
	var wrapped []cbor.RawMessage
	if err := c.runQuery(ctx, buildShelleyQuery(era, queryType, params...), &wrapped); err != nil {
		return err
	}
	if len(wrapped) != 1 {
		return ErrEraMismatch
	}
	if _, err := cbor.Decode(wrapped[0], result); err != nil {
		return fmt.Errorf("decode query result: %w", err)
	}
	return nil
}

// getCurrentEra returns the current era, which is cached for the acquired state
func (c *Client) getCurrentEra(ctx context.Context) (int, error) {
	c.eraMutex.Lock()
	era := c.currentEra
	c.eraMutex.Unlock()
	if era > -1 {
		return era, nil
	}
	if err := c.runQuery(ctx, buildHardForkQuery(QueryTypeHardForkCurrentEra), &era); err != nil {
		return -1, err
	}
	if era < 0 {
		return -1, errors.New("invalid current era")
	}
	c.eraMutex.Lock()
	c.currentEra = era
	c.eraMutex.Unlock()
	return era, nil
}
