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

package commands

import (
	"fmt"
	"strconv"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/blinklabs-io/ouroboros-client/block"
	"github.com/blinklabs-io/ouroboros-client/cbor"
	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol/chainsync"
	"github.com/blinklabs-io/ouroboros-client/protocol/common"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		chainTipCmd,
		chainSyncCmd,
		blockFetchCmd,
	)
	chainSyncCmd.Flags().StringVar(&chainSyncFlags.start, "start", "tip", `point to start from: "tip", "origin" or <slot>.<hash>`)
	chainSyncCmd.Flags().IntVar(&chainSyncFlags.count, "count", 10, "number of blocks to follow, 0 for no limit")
}

var chainTipCmd = &cobra.Command{
	Use:   "chain-tip",
	Short: "Shows the current tip of the node's chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := connect(cmd.Context(), ouroboros.WithKeepAlive(false))
		if err != nil {
			return err
		}
		defer conn.Close()
		tip, err := conn.ChainSync().Client.GetCurrentTip(cmd.Context())
		if err != nil {
			return err
		}
		return pterm.DefaultTable.WithData(pterm.TableData{
			{"Block hash", fmt.Sprintf("%x", tip.Point.Hash)},
			{"Slot", strconv.FormatUint(tip.Point.Slot, 10)},
			{"Block number", strconv.FormatUint(tip.BlockNumber, 10)},
		}).Render()
	},
}

var chainSyncFlags struct {
	start string
	count int
}

var chainSyncCmd = &cobra.Command{
	Use:   "chain-sync",
	Short: "Follows the node's chain, printing each roll forward and roll backward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		conn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := conn.ChainSync().Client
		var start common.Point
		if chainSyncFlags.start == "tip" {
			tip, err := client.GetCurrentTip(ctx)
			if err != nil {
				return err
			}
			start = tip.Point
		} else {
			if start, err = common.ParsePoint(chainSyncFlags.start); err != nil {
				return err
			}
		}
		point, tip, err := client.FindIntersect(ctx, []common.Point{start})
		if err != nil {
			return err
		}
		pterm.Info.Printfln("intersected at %s, tip is at slot %d", point, tip.Point.Slot)
		for count := 0; chainSyncFlags.count == 0 || count < chainSyncFlags.count; {
			resp, err := client.RequestNext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			switch resp.Type {
			case chainsync.NextResponseAwaitReply:
				pterm.Info.Println("caught up with the tip, waiting for a new block")
			case chainsync.NextResponseRollBackward:
				pterm.Warning.Printfln("roll backward to %s", resp.Point)
			case chainsync.NextResponseRollForward:
				var summary *block.Summary
				if resp.Header != nil {
					summary, err = block.NewHeaderSummaryFromCbor(resp.Era, resp.Header.ByronType, resp.Content)
				} else {
					summary, err = block.NewBlockSummaryFromCbor(resp.Era, resp.Content)
				}
				if err != nil {
					return err
				}
				pterm.Success.Printfln(
					"roll forward: era=%s slot=%d block=%d hash=%s size=%d tip_slot=%d",
					ledger.EraName(summary.Era),
					summary.Slot,
					summary.BlockNumber,
					summary.Hash,
					summary.Size,
					resp.Tip.Point.Slot,
				)
				count++
			}
		}
		return client.Done(ctx)
	},
}

var blockFetchCmd = &cobra.Command{
	Use:   "block-fetch <start-point> [end-point]",
	Short: "Fetches a range of blocks, given as <slot>.<hash> points",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireNodeToNode(); err != nil {
			return err
		}
		start, err := common.ParsePoint(args[0])
		if err != nil {
			return err
		}
		end := start
		if len(args) > 1 {
			if end, err = common.ParsePoint(args[1]); err != nil {
				return err
			}
		}
		ctx := cmd.Context()
		conn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		blocks, err := conn.BlockFetch().Client.FetchRange(ctx, start, end)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			pterm.Warning.Println("the node has no blocks in the requested range")
			return nil
		}
		data := pterm.TableData{{"Slot", "Block", "Era", "Hash", "Txs", "Size"}}
		for _, blockData := range blocks {
			summary, err := decodeFetchedBlock(blockData)
			if err != nil {
				return err
			}
			data = append(data, []string{
				strconv.FormatUint(summary.Slot, 10),
				strconv.FormatUint(summary.BlockNumber, 10),
				ledger.EraName(summary.Era),
				summary.Hash.String(),
				strconv.Itoa(summary.TxCount),
				strconv.Itoa(summary.Size),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

// fetchedBlock is the [era, block] pair delivered by block-fetch
type fetchedBlock struct {
	cbor.StructAsArray
	Era   uint
	Block cbor.RawMessage
}

func decodeFetchedBlock(data []byte) (*block.Summary, error) {
	var tmp fetchedBlock
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return nil, fmt.Errorf("%w: %w", block.ErrInvalidBlock, err)
	}
	return block.NewBlockSummaryFromCbor(tmp.Era, tmp.Block)
}
