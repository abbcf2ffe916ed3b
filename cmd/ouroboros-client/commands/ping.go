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
	"context"
	"errors"
	"time"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNoKeepAlive = errors.New("the node does not support keep-alive at the negotiated version")

func init() {
	pingCmd.Flags().IntVar(&pingFlags.count, "count", 5, "number of keep-alive round trips per peer, 0 for no limit")
	pingCmd.Flags().DurationVar(&pingFlags.interval, "interval", time.Second, "time between round trips")
	pingCmd.Flags().StringVar(&pingFlags.topology, "topology", "", "ping every peer in this node topology file instead of --address")
	rootCmd.AddCommand(pingCmd)
}

var pingFlags struct {
	count    int
	interval time.Duration
	topology string
}

// rttStats tracks the round trip times seen by ping
type rttStats struct {
	count int
	min   time.Duration
	max   time.Duration
	total time.Duration
}

func (s *rttStats) add(rtt time.Duration) {
	if s.count == 0 || rtt < s.min {
		s.min = rtt
	}
	if rtt > s.max {
		s.max = rtt
	}
	s.total += rtt
	s.count++
}

func (s *rttStats) avg() time.Duration {
	if s.count == 0 {
		return 0
	}
	return s.total / time.Duration(s.count)
}

func (s *rttStats) row(address string) []string {
	if s.count == 0 {
		return []string{address, "0", "-", "-", "-"}
	}
	return []string{
		address,
		pterm.Sprint(s.count),
		s.min.Round(time.Microsecond).String(),
		s.avg().Round(time.Microsecond).String(),
		s.max.Round(time.Microsecond).String(),
	}
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measures keep-alive round trip times to one or more nodes (node-to-node)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireNodeToNode(); err != nil {
			return err
		}
		ctx := cmd.Context()
		if pingFlags.topology == "" {
			conn, err := connect(ctx, ouroboros.WithKeepAlive(false))
			if err != nil {
				return err
			}
			defer conn.Close()
			stats, err := ping(ctx, conn)
			if stats.count > 0 {
				pterm.Success.Printfln(
					"%d round trips: min=%s avg=%s max=%s",
					stats.count,
					stats.min.Round(time.Microsecond),
					stats.avg().Round(time.Microsecond),
					stats.max.Round(time.Microsecond),
				)
			}
			return err
		}
		topology, err := ouroboros.NewTopologyConfigFromFile(pingFlags.topology)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"Peer", "Round trips", "Min", "Avg", "Max"}}
		for _, address := range topology.Peers() {
			if ctx.Err() != nil {
				break
			}
			stats, err := pingAddress(ctx, address)
			if err != nil {
				pterm.Warning.Printfln("%s: %s", address, err)
			}
			data = append(data, stats.row(address))
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func pingAddress(ctx context.Context, address string) (*rttStats, error) {
	conn, err := connectTo(ctx, "tcp", address, ouroboros.WithKeepAlive(false))
	if err != nil {
		return &rttStats{}, err
	}
	defer conn.Close()
	return ping(ctx, conn)
}

// ping runs keep-alive round trips on conn until the configured count is reached or
// ctx is cancelled
func ping(ctx context.Context, conn *ouroboros.Connection) (*rttStats, error) {
	stats := &rttStats{}
	if conn.KeepAlive() == nil {
		return stats, errNoKeepAlive
	}
	client := conn.KeepAlive().Client
	ticker := time.NewTicker(pingFlags.interval)
	defer ticker.Stop()
	for pingFlags.count == 0 || stats.count < pingFlags.count {
		rtt, err := client.KeepAlive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return stats, nil
			}
			return stats, err
		}
		stats.add(rtt)
		logger.Info(
			"keep-alive",
			"seq", stats.count,
			"rtt", rtt.Round(time.Microsecond),
		)
		if pingFlags.count != 0 && stats.count == pingFlags.count {
			break
		}
		select {
		case <-ctx.Done():
			return stats, nil
		case <-ticker.C:
		}
	}
	return stats, client.Done(ctx)
}
