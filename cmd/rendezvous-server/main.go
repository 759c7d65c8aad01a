// Copyright 2026 The rendezvous Authors
// This file is part of rendezvous.
//
// rendezvous is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rendezvous is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with rendezvous. If not, see <http://www.gnu.org/licenses/>.

// Command rendezvous-server runs the directory server of §4.2: it
// accepts peer connections, assigns identifiers, and relays pairing and
// message traffic between peers without ever seeing plaintext.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/vyhive/rendezvous/internal/logging"
	"github.com/vyhive/rendezvous/internal/rendezvous"
)

var (
	addressFlag = &cli.StringFlag{
		Name:    "address",
		Usage:   "address to listen on",
		Value:   "0.0.0.0",
		EnvVars: []string{"RENDEZVOUS_ADDRESS"},
	}
	portFlag = &cli.IntFlag{
		Name:    "port",
		Usage:   "port to listen on",
		Value:   7890,
		EnvVars: []string{"RENDEZVOUS_PORT"},
	}
	logFileFlag = &cli.StringFlag{
		Name:    "log-file",
		Usage:   "write logs to a rotated file instead of stderr",
		EnvVars: []string{"RENDEZVOUS_LOG_FILE"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "log level: debug, info, warn, error",
		Value:   "info",
		EnvVars: []string{"RENDEZVOUS_LOG_LEVEL"},
	}
)

func main() {
	app := &cli.App{
		Name:   "rendezvous-server",
		Usage:  "directory and relay server for the rendezvous chat protocol",
		Flags:  []cli.Flag{addressFlag, portFlag, logFileFlag, logLevelFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	level, err := logging.ParseLevel(ctx.String(logLevelFlag.Name))
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{Level: level, FilePath: ctx.String(logFileFlag.Name)})

	addr := net.JoinHostPort(ctx.String(addressFlag.Name), fmt.Sprint(ctx.Int(portFlag.Name)))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logger.Info("rendezvous server listening", "address", addr)

	srv := rendezvous.NewServer(listener, logger)

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(runCtx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("rendezvous server shut down cleanly")
	return nil
}
