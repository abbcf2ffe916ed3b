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

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNoPeerSharing = errors.New("the node did not agree to share peers")

func init() {
	peersCmd.Flags().Uint8Var(&peersFlags.amount, "amount", 10, "maximum number of peers to request")
	rootCmd.AddCommand(peersCmd)
}

var peersFlags struct {
	amount uint8
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Asks a node for the addresses of other peers (node-to-node)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireNodeToNode(); err != nil {
			return err
		}
		ctx := cmd.Context()
		conn, err := connect(
			ctx,
			ouroboros.WithKeepAlive(false),
			ouroboros.WithPeerSharing(true),
		)
		if err != nil {
			return err
		}
		defer conn.Close()
		if conn.PeerSharing() == nil {
			return errNoPeerSharing
		}
		client := conn.PeerSharing().Client
		peers, err := client.GetPeers(ctx, peersFlags.amount)
		if err != nil {
			return err
		}
		if len(peers) == 0 {
			pterm.Warning.Println("the node shared no peers")
		}
		for _, peer := range peers {
			pterm.Println(peer.String())
		}
		return client.Done(ctx)
	},
}
