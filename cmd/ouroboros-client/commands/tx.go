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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/blinklabs-io/ouroboros-client/ledger"
	"github.com/blinklabs-io/ouroboros-client/protocol/localtxmonitor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	errNoTxFile         = errors.New("you must specify --tx-file")
	errNoLocalTxMonitor = errors.New("the node does not support mempool monitoring at the negotiated version")
)

func init() {
	txSubmitCmd.Flags().StringVar(&txSubmitFlags.txFile, "tx-file", "", "path to the transaction: raw CBOR, hex or a JSON envelope with a cborHex field")
	txSubmitCmd.Flags().Uint16Var(&txSubmitFlags.era, "era", ledger.EraIdConway, "era ID of the transaction")
	txMonitorCmd.AddCommand(
		txMonitorSizesCmd,
		txMonitorHasCmd,
		txMonitorListCmd,
		txMonitorMeasuresCmd,
	)
	rootCmd.AddCommand(txSubmitCmd, txMonitorCmd)
}

var txSubmitFlags struct {
	txFile string
	era    uint16
}

var txSubmitCmd = &cobra.Command{
	Use:   "tx-submit",
	Short: "Submits a transaction to the node's mempool (node-to-client)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireNodeToClient(); err != nil {
			return err
		}
		if txSubmitFlags.txFile == "" {
			return errNoTxFile
		}
		data, err := os.ReadFile(txSubmitFlags.txFile)
		if err != nil {
			return err
		}
		txCbor, err := decodeTxFile(data)
		if err != nil {
			return err
		}
		txId, err := ledger.TransactionId(txCbor)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		conn, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := conn.LocalTxSubmission().Client
		if err := client.SubmitTx(ctx, txSubmitFlags.era, txCbor); err != nil {
			return err
		}
		pterm.Success.Printfln("submitted transaction %s", txId)
		return client.Done(ctx)
	},
}

// txEnvelope is the JSON text envelope used by cardano-cli for transactions
type txEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// decodeTxFile returns the transaction CBOR from the contents of a transaction file
func decodeTxFile(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope txEnvelope
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode transaction envelope: %w", err)
		}
		if envelope.CborHex == "" {
			return nil, errors.New("transaction envelope has no cborHex field")
		}
		trimmed = []byte(envelope.CborHex)
	}
	if txCbor, err := hex.DecodeString(string(trimmed)); err == nil {
		return txCbor, nil
	}
	return data, nil
}

var txMonitorCmd = &cobra.Command{
	Use:   "tx-monitor",
	Short: "Inspects the node's mempool (node-to-client)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCmd.PersistentPreRun(cmd, args)
		return requireNodeToClient()
	},
}

// withMempoolSnapshot connects to the node, acquires a mempool snapshot and runs fn
// against it
func withMempoolSnapshot(cmd *cobra.Command, fn func(*localtxmonitor.Client) error) error {
	ctx := cmd.Context()
	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	txMonitor := conn.LocalTxMonitor()
	if txMonitor == nil {
		return errNoLocalTxMonitor
	}
	client := txMonitor.Client
	slotNo, err := client.Acquire(ctx)
	if err != nil {
		return err
	}
	logger.Debug(
		"acquired mempool snapshot",
		"slot", slotNo,
	)
	if err := fn(client); err != nil {
		return err
	}
	if err := client.Release(ctx); err != nil {
		return err
	}
	return client.Done(ctx)
}

var txMonitorSizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "Shows the capacity and usage of the mempool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMempoolSnapshot(cmd, func(client *localtxmonitor.Client) error {
			sizes, err := client.GetSizes(cmd.Context())
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithData(pterm.TableData{
				{"Capacity (bytes)", strconv.FormatUint(uint64(sizes.Capacity), 10)},
				{"Size (bytes)", strconv.FormatUint(uint64(sizes.Size), 10)},
				{"Transactions", strconv.FormatUint(uint64(sizes.NumberOfTxs), 10)},
			}).Render()
		})
	},
}

var txMonitorHasCmd = &cobra.Command{
	Use:   "has <txid>",
	Short: "Checks whether a transaction is in the mempool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		txId, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("invalid transaction ID: %w", err)
		}
		return withMempoolSnapshot(cmd, func(client *localtxmonitor.Client) error {
			found, err := client.HasTx(cmd.Context(), txId)
			if err != nil {
				return err
			}
			if found {
				pterm.Success.Printfln("transaction %s is in the mempool", args[0])
			} else {
				pterm.Warning.Printfln("transaction %s is not in the mempool", args[0])
			}
			return nil
		})
	},
}

var txMonitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the transactions in the mempool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMempoolSnapshot(cmd, func(client *localtxmonitor.Client) error {
			data := pterm.TableData{{"Transaction ID", "Era", "Size"}}
			for {
				era, tx, err := client.NextTx(cmd.Context())
				if err != nil {
					return err
				}
				if tx == nil {
					break
				}
				txId, err := ledger.TransactionId(tx)
				if err != nil {
					return err
				}
				data = append(data, []string{
					txId.String(),
					ledger.EraName(uint(era)),
					strconv.Itoa(len(tx)),
				})
			}
			if len(data) == 1 {
				pterm.Info.Println("the mempool is empty")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var txMonitorMeasuresCmd = &cobra.Command{
	Use:   "measures",
	Short: "Shows the mempool usage per measure",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMempoolSnapshot(cmd, func(client *localtxmonitor.Client) error {
			txCount, measures, err := client.GetMeasures(cmd.Context())
			if err != nil {
				return err
			}
			pterm.Info.Printfln("transactions: %d", txCount)
			return pterm.DefaultTable.WithHasHeader().WithData(measureTable(measures)).Render()
		})
	},
}

// measureTable builds a table of mempool measures ordered by name
func measureTable(measures map[string]localtxmonitor.MeasureValue) pterm.TableData {
	names := make([]string, 0, len(measures))
	for name := range measures {
		names = append(names, name)
	}
	sort.Strings(names)
	data := pterm.TableData{{"Measure", "Size", "Capacity"}}
	for _, name := range names {
		data = append(data, []string{
			name,
			strconv.FormatUint(measures[name].Size, 10),
			strconv.FormatUint(measures[name].Capacity, 10),
		})
	}
	return data
}
