// Copyright 2026 The rendezvous Authors
// This file is part of the rendezvous library.
//
// The rendezvous library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The rendezvous library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the rendezvous library. If not, see <http://www.gnu.org/licenses/>.

// Package tui is a thin, line-oriented external collaborator (§6): it
// reads commands from a user-input channel and drives the client's
// exported UI-contract methods. It assumes nothing about the terminal
// beyond lines of text in and lines of text out, so it can sit over a
// plain pipe in tests as easily as an interactive stdin.
package tui

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vyhive/rendezvous/internal/peerclient"
	"github.com/vyhive/rendezvous/internal/peerid"
)

// REPL reads lines from in and writes prompts/output to out, dispatching
// each line to c until in is exhausted or a "quit" command is read.
type REPL struct {
	client *peerclient.Client
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
}

// New constructs a REPL bound to client, reading commands from in and
// writing output to out.
func New(client *peerclient.Client, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{client: client, in: bufio.NewScanner(in), out: out, logger: logger}
}

// Run drains events from the client in one goroutine while reading
// commands from in on the calling goroutine, until in is exhausted or a
// "quit"/"exit" line is read. Closing done stops only the event printer;
// the command loop keeps blocking on in and does not return because of
// done.
func (r *REPL) Run(done <-chan struct{}) {
	go r.printEvents(done)

	fmt.Fprintln(r.out, "connected. type 'help' for commands.")
	for r.in.Scan() {
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		r.dispatch(line)
	}
}

func (r *REPL) printEvents(done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-r.client.Events():
			if !ok {
				return
			}
			r.printEvent(ev)
		case <-done:
			return
		}
	}
}

func (r *REPL) printEvent(ev peerclient.Event) {
	switch e := ev.(type) {
	case peerclient.PeerJoined:
		fmt.Fprintf(r.out, "* peer joined: %s (%s)\n", displayName(e.Desc.Name), e.Desc.ID)
	case peerclient.PeerLeft:
		fmt.Fprintf(r.out, "* peer left: %s\n", e.ID)
	case peerclient.IncomingRequest:
		fmt.Fprintf(r.out, "* pairing request from %s (%s) — type 'accept %s'\n", displayName(e.Desc.Name), e.Desc.ID, e.Desc.ID)
	case peerclient.PairingEstablished:
		fmt.Fprintf(r.out, "* paired with %s\n", e.ID)
	case peerclient.IncomingText:
		fmt.Fprintf(r.out, "[%s] %s\n", e.FromName, e.Text)
	case peerclient.Undecipherable:
		fmt.Fprintf(r.out, "* undecipherable message from %s\n", e.From)
	}
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func (r *REPL) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "name":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: name <friendly-name>")
			return
		}
		if err := r.client.SetFriendlyName(args[0]); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}

	case "peers":
		for _, p := range r.client.ListPeers() {
			fmt.Fprintf(r.out, "  %s  %s\n", p.ID, displayName(p.Name))
		}

	case "pending":
		for _, p := range r.client.ListPending() {
			fmt.Fprintf(r.out, "  %s  %s\n", p.ID, displayName(p.Name))
		}

	case "open":
		id, err := parseID(args)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		status, err := r.client.OpenChannel(id)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return
		}
		fmt.Fprintln(r.out, status)

	case "accept":
		id, err := parseID(args)
		if err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
		if err := r.client.Accept(id); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}

	case "send":
		if len(args) == 0 {
			fmt.Fprintln(r.out, "usage: send <text...>")
			return
		}
		if err := r.client.SendText(strings.Join(args, " ")); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}

	case "whoami":
		fmt.Fprintln(r.out, r.client.OwnID())

	default:
		fmt.Fprintf(r.out, "unknown command %q, type 'help'\n", cmd)
	}
}

func parseID(args []string) (peerid.ID, error) {
	if len(args) != 1 {
		return peerid.Nil, fmt.Errorf("usage: <command> <peer-id>")
	}
	id, err := peerid.Parse(args[0])
	if err != nil {
		return peerid.Nil, fmt.Errorf("bad peer id %q: %w", args[0], err)
	}
	return id, nil
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "commands:")
	fmt.Fprintln(r.out, "  name <name>        set your friendly name")
	fmt.Fprintln(r.out, "  peers              list known peers")
	fmt.Fprintln(r.out, "  pending            list pending pairing requests")
	fmt.Fprintln(r.out, "  open <peer-id>     request or switch to a pairing")
	fmt.Fprintln(r.out, "  accept <peer-id>   accept a pending pairing request")
	fmt.Fprintln(r.out, "  send <text>        send text on the current channel")
	fmt.Fprintln(r.out, "  whoami             print your own peer id")
	fmt.Fprintln(r.out, "  quit               disconnect")
}
