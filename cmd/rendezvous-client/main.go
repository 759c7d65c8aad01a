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

// Command rendezvous-client connects to a rendezvous server and exposes
// a minimal line-oriented REPL (§6 UI contract) over the resulting
// session.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	_ "go.uber.org/automaxprocs"

	"github.com/vyhive/rendezvous/internal/keyexport"
	"github.com/vyhive/rendezvous/internal/logging"
	"github.com/vyhive/rendezvous/internal/peerclient"
	"github.com/vyhive/rendezvous/internal/tui"
)

var (
	addressFlag = &cli.StringFlag{
		Name:    "address",
		Usage:   "server address to connect to",
		Value:   "127.0.0.1",
		EnvVars: []string{"RENDEZVOUS_ADDRESS"},
	}
	portFlag = &cli.IntFlag{
		Name:    "port",
		Usage:   "server port to connect to",
		Value:   7890,
		EnvVars: []string{"RENDEZVOUS_PORT"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "log level: debug, info, warn, error",
		Value:   "warn",
		EnvVars: []string{"RENDEZVOUS_LOG_LEVEL"},
	}
	exportKeyFlag = &cli.StringFlag{
		Name:    "export-key",
		Usage:   "on exit, write this session's passphrase-protected private key to the given path",
		EnvVars: []string{"RENDEZVOUS_EXPORT_KEY"},
	}
	exportKeyPassphraseFlag = &cli.StringFlag{
		Name:    "export-key-passphrase",
		Usage:   "passphrase for --export-key; prompted for interactively when unset",
		EnvVars: []string{"RENDEZVOUS_EXPORT_KEY_PASSPHRASE"},
	}
)

func main() {
	app := &cli.App{
		Name:   "rendezvous-client",
		Usage:  "peer client for the rendezvous chat protocol",
		Flags:  []cli.Flag{addressFlag, portFlag, logLevelFlag, exportKeyFlag, exportKeyPassphraseFlag},
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
	logger := logging.New(logging.Options{Level: level})

	addr := net.JoinHostPort(ctx.String(addressFlag.Name), fmt.Sprint(ctx.Int(portFlag.Name)))
	client, err := peerclient.Dial(addr, logger)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer client.Close()

	if path := ctx.String(exportKeyFlag.Name); path != "" {
		passphrase := ctx.String(exportKeyPassphraseFlag.Name)
		defer exportKeyOnExit(client, logging.ExpandHome(path), passphrase, logger)
	}

	done := make(chan struct{})
	go func() {
		if err := client.Run(); err != nil {
			logger.Warn("client connection ended", "err", err)
		}
		close(done)
	}()

	repl := tui.New(client, bufio.NewReader(os.Stdin), os.Stdout, logger)
	repl.Run(done)
	return nil
}

// exportKeyOnExit writes out the session's private key under the given
// passphrase, reading the passphrase interactively from stdin when it
// was not supplied via --export-key-passphrase/RENDEZVOUS_EXPORT_KEY_PASSPHRASE
// (§4.7: "read from an env var or interactive prompt").
func exportKeyOnExit(client *peerclient.Client, path, passphrase string, logger *slog.Logger) {
	if passphrase == "" {
		fmt.Fprint(os.Stdout, "passphrase for key export: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			logger.Warn("key export aborted: could not read passphrase", "err", err)
			return
		}
		passphrase = strings.TrimRight(line, "\r\n")
	}

	if err := keyexport.Export(path, client.PrivateKey(), passphrase); err != nil {
		logger.Warn("key export failed", "err", err)
		return
	}
	logger.Info("exported private key", "path", path)
}
