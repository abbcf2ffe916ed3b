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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol/localstatequery"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNoLocalStateQuery = errors.New("the node does not support local state queries at the negotiated version")

func init() {
	queryCmd.AddCommand(
		queryTipCmd,
		queryEraCmd,
		querySystemStartCmd,
		queryUtxosByAddressCmd,
		queryUtxosByTxInCmd,
	)
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Queries the node's ledger state (node-to-client)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCmd.PersistentPreRun(cmd, args)
		return requireNodeToClient()
	},
}

// withLocalStateQuery connects to the node and runs fn against its local-state-query client
func withLocalStateQuery(cmd *cobra.Command, fn func(*localstatequery.Client) error) error {
	conn, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()
	lsq := conn.LocalStateQuery()
	if lsq == nil {
		return errNoLocalStateQuery
	}
	if err := fn(lsq.Client); err != nil {
		return err
	}
	return lsq.Client.Done(cmd.Context())
}

var queryTipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Shows the epoch, block number and point of the ledger tip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withLocalStateQuery(cmd, func(client *localstatequery.Client) error {
			// Acquire once so that all values describe the same ledger state
			if err := client.Acquire(ctx, localstatequery.AcquireVolatileTip{}); err != nil {
				return err
			}
			era, err := client.GetCurrentEra(ctx)
			if err != nil {
				return err
			}
			epochNo, err := client.GetEpochNo(ctx)
			if err != nil {
				return err
			}
			blockNo, err := client.GetChainBlockNo(ctx)
			if err != nil {
				return err
			}
			point, err := client.GetChainPoint(ctx)
			if err != nil {
				return err
			}
			if err := client.Release(ctx); err != nil {
				return err
			}
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"Era", ledger.EraName(uint(era))},
				{"Epoch", strconv.FormatUint(epochNo, 10)},
				{"Block number", strconv.FormatUint(blockNo, 10)},
				{"Point", point.String()},
			}).Render()
		})
	},
}

var queryEraCmd = &cobra.Command{
	Use:   "era",
	Short: "Shows the current era",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLocalStateQuery(cmd, func(client *localstatequery.Client) error {
			era, err := client.GetCurrentEra(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Info.Printfln("current era: %s (%d)", ledger.EraName(uint(era)), era)
			return nil
		})
	},
}

var querySystemStartCmd = &cobra.Command{
	Use:   "system-start",
	Short: "Shows the start time of the chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLocalStateQuery(cmd, func(client *localstatequery.Client) error {
			result, err := client.GetSystemStart(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Info.Printfln("system start: %s", systemStartTime(result).Format(time.RFC3339Nano))
			return nil
		})
	},
}

// systemStartTime converts the (year, day of year, picoseconds) triple to a UTC time
func systemStartTime(result *localstatequery.SystemStartResult) time.Time {
	start := time.Date(result.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, result.Day-1).Add(time.Duration(result.Picoseconds / 1000))
}

var queryUtxosByAddressCmd = &cobra.Command{
	Use:   "utxos-by-address <address>...",
	Short: "Lists the unspent outputs held by the given addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalStateQuery(cmd, func(client *localstatequery.Client) error {
			result, err := client.GetUTxOByAddress(cmd.Context(), args)
			if err != nil {
				return err
			}
			return renderUtxos(result)
		})
	},
}

var queryUtxosByTxInCmd = &cobra.Command{
	Use:   "utxos-by-txin <txid>#<index>...",
	Short: "Looks up the given transaction inputs among the unspent outputs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		txIns := make([]localstatequery.UtxoId, 0, len(args))
		for _, arg := range args {
			utxoId, err := localstatequery.ParseUtxoId(arg)
			if err != nil {
				return err
			}
			txIns = append(txIns, utxoId)
		}
		return withLocalStateQuery(cmd, func(client *localstatequery.Client) error {
			result, err := client.GetUTxOByTxIn(cmd.Context(), txIns)
			if err != nil {
				return err
			}
			return renderUtxos(result)
		})
	},
}

func renderUtxos(result *localstatequery.UTxOsResult) error {
	if len(result.Results) == 0 {
		pterm.Warning.Println("no UTxOs found")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(utxoTable(result)).Render()
}

// utxoTable builds a table of UTxOs ordered by ID
func utxoTable(result *localstatequery.UTxOsResult) pterm.TableData {
	ids := make([]localstatequery.UtxoId, 0, len(result.Results))
	for id := range result.Results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	data := pterm.TableData{{"UTxO", "Address", "Lovelace", "Assets"}}
	for _, id := range ids {
		output := result.Results[id]
		assets := ""
		if output.HasAssets {
			assets = "yes"
		}
		data = append(data, []string{
			id.String(),
			output.Address.String(),
			fmt.Sprintf("%d", output.Amount),
			assets,
		})
	}
	return data
}
