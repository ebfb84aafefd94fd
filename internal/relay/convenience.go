package relay

import (
	"context"
	"fmt"

	"github.com/lumina-grow/ripple/internal/types"
)

// SetSprinklers turns the sprinkler valve on or off.
func (f *Facade) SetSprinklers(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DeviceSprinklers, state)
}

// SetMixingPump turns the mixing pump on or off.
func (f *Facade) SetMixingPump(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DeviceMixingPump, state)
}

// SetValveOutsideToTank turns the outside-to-tank refill valve on or off.
func (f *Facade) SetValveOutsideToTank(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DeviceValveOutsideToTank, state)
}

// SetValveTankToOutside turns the tank-to-outside drain valve on or off.
func (f *Facade) SetValveTankToOutside(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DeviceValveTankToOutside, state)
}

// SetPHPlusPump turns the pH-up dosing pump on or off.
func (f *Facade) SetPHPlusPump(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DevicePHUpPump, state)
}

// SetPHMinusPump turns the pH-down dosing pump on or off.
func (f *Facade) SetPHMinusPump(ctx context.Context, state bool) error {
	return f.SetRelay(ctx, types.DevicePHDownPump, state)
}

// SetNutrientPump turns a single named nutrient pump ("A", "B", or "C") on
// or off.
func (f *Facade) SetNutrientPump(ctx context.Context, letter string, state bool) error {
	device, err := nutrientDeviceName(letter)
	if err != nil {
		return err
	}
	return f.SetRelay(ctx, device, state)
}

// SetNutrientPumps sets all three nutrient pumps (A, B, C) to state in one
// contiguous bus write, provided their assignments are contiguous — the
// common layout spec.md §4.9 assumes ("starting A/B/C as one command when
// indices are contiguous"). When they are not contiguous it falls back to
// three individual writes.
func (f *Facade) SetNutrientPumps(ctx context.Context, state bool) error {
	names := []string{types.DeviceNutrientPumpA, types.DeviceNutrientPumpB, types.DeviceNutrientPumpC}
	addrs := make([]types.RelayAddress, len(names))
	for i, name := range names {
		addr, ok := f.assignments.Resolve(name)
		if !ok {
			return fmt.Errorf("relay: unknown device %q", name)
		}
		addrs[i] = addr
	}

	if contiguous(addrs) {
		states := []bool{state, state, state}
		return f.SetMultipleRelays(ctx, addrs[0].Board, addrs[0].Index, states, names)
	}

	for _, name := range names {
		if err := f.SetRelay(ctx, name, state); err != nil {
			return err
		}
	}
	return nil
}

func contiguous(addrs []types.RelayAddress) bool {
	for i := 1; i < len(addrs); i++ {
		if addrs[i].Board != addrs[0].Board || addrs[i].Index != addrs[i-1].Index+1 {
			return false
		}
	}
	return true
}

func nutrientDeviceName(letter string) (string, error) {
	switch letter {
	case "A", "a":
		return types.DeviceNutrientPumpA, nil
	case "B", "b":
		return types.DeviceNutrientPumpB, nil
	case "C", "c":
		return types.DeviceNutrientPumpC, nil
	default:
		return "", fmt.Errorf("relay: unknown nutrient pump letter %q", letter)
	}
}
