package main

import (
	"context"

	"github.com/lumina-grow/ripple/internal/rlog"
)

// loggingRelayBus is the default ports.RelayBus wired by this binary. The
// real transport is a Modbus RTU driver talking to the relay boards, and
// the wire protocol is explicitly out of scope (spec.md §1) — a deployment
// supplies its own ports.RelayBus built against the actual hardware. This
// one only logs, so `ripplectl serve` and `ripplectl doctor` have something
// to run against on a machine with no relay boards attached.
type loggingRelayBus struct {
	log *rlog.Logger
}

func newLoggingRelayBus() *loggingRelayBus {
	return &loggingRelayBus{log: rlog.New("relaybus")}
}

func (b *loggingRelayBus) WritePort(_ context.Context, board, index int, state bool) error {
	b.log.Info("board %d port %d -> %v", board, index, state)
	return nil
}

func (b *loggingRelayBus) WriteRange(_ context.Context, board, startIndex int, states []bool) error {
	b.log.Info("board %d ports %d..%d -> %v", board, startIndex, startIndex+len(states)-1, states)
	return nil
}
