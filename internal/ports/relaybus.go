package ports

import "context"

// RelayBus is the single physical write point for relay boards — the
// primitive spec.md §4.9 describes as "write to port P on board B". The
// Modbus wire protocol underneath it is out of scope (spec.md §1); the
// actuator façade in package relay is the only caller.
type RelayBus interface {
	WritePort(ctx context.Context, board, index int, state bool) error
	WriteRange(ctx context.Context, board, startIndex int, states []bool) error
}
