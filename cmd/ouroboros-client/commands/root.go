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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	ouroboros "github.com/blinklabs-io/ouroboros-client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var globalFlags struct {
	socket       string
	address      string
	nodeToNode   bool
	network      string
	networkMagic uint32
	debug        bool
}

var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:           "ouroboros-client",
	Short:         "Command line client for Cardano nodes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := pterm.LogLevelInfo
		if globalFlags.debug {
			level = pterm.LogLevelDebug
		}
		logger = slog.New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(level)))
	},
}

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalFlags.socket, "socket", "", "UNIX socket path of the node (node-to-client)")
	flags.StringVar(&globalFlags.address, "address", "", "TCP address of the node in host:port format")
	flags.BoolVar(&globalFlags.nodeToNode, "ntn", false, "use the node-to-node protocol (defaults to node-to-client)")
	flags.StringVar(&globalFlags.network, "network", "preview", "name of the network the node is participating in")
	flags.Uint32Var(&globalFlags.networkMagic, "network-magic", 0, "network magic value, overrides --network")
	flags.BoolVar(&globalFlags.debug, "debug", false, "enable debug logging")
}

// Execute runs the root command. Interrupting the process cancels the running command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		pterm.Error.Println(err.Error())
	}
	return err
}

var (
	errNoTarget         = errors.New("you must specify one of --socket or --address")
	errNeedNodeToNode   = errors.New("this command requires a node-to-node connection (--ntn)")
	errNeedNodeToClient = errors.New("this command requires a node-to-client connection")
)

// connect dials the node selected by the global flags and performs the handshake
func connect(ctx context.Context, options ...ouroboros.ConnectionOptionFunc) (*ouroboros.Connection, error) {
	switch {
	case globalFlags.socket != "":
		return connectTo(ctx, "unix", globalFlags.socket, options...)
	case globalFlags.address != "":
		return connectTo(ctx, "tcp", globalFlags.address, options...)
	default:
		return nil, errNoTarget
	}
}

// connectTo dials the given node and performs the handshake. Connection failures are
// logged in the background
func connectTo(
	ctx context.Context,
	dialProto string,
	dialAddress string,
	options ...ouroboros.ConnectionOptionFunc,
) (*ouroboros.Connection, error) {
	networkMagic, err := ouroboros.ResolveNetworkMagic(globalFlags.network, globalFlags.networkMagic)
	if err != nil {
		return nil, err
	}
	opts := []ouroboros.ConnectionOptionFunc{
		ouroboros.WithNetworkMagic(networkMagic),
		ouroboros.WithNodeToNode(globalFlags.nodeToNode),
		ouroboros.WithLogger(logger.With("address", dialAddress)),
	}
	opts = append(opts, options...)
	conn, err := ouroboros.Dial(ctx, dialProto, dialAddress, opts...)
	if err != nil {
		return nil, err
	}
	version, versionData := conn.ProtocolVersion()
	logger.Debug(
		"connected",
		"address", dialAddress,
		"version", version,
		"network_magic", versionData.NetworkMagic(),
	)
	go func() {
		for err := range conn.ErrorChan() {
			logger.Error(
				"connection failed",
				"address", dialAddress,
				"error", err,
			)
		}
	}()
	return conn, nil
}

func requireNodeToNode() error {
	if !globalFlags.nodeToNode {
		return errNeedNodeToNode
	}
	return nil
}

func requireNodeToClient() error {
	if globalFlags.nodeToNode {
		return errNeedNodeToClient
	}
	return nil
}
