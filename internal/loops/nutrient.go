package loops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/types"
)

// nutrientAlarmDebounceWindow is the 600 s debounce window spec.md §4.1
// specifies for the min/max advisory alarms.
const nutrientAlarmDebounceWindow = 600 * time.Second

// NutrientLoop is the hysteresis dosing loop for EC (spec.md §4.1).
type NutrientLoop struct {
	deps   *Deps
	mixing *MixingLoop

	mu           sync.Mutex
	dosingActive bool // spec.md §3: initial value TRUE

	debounce *audit.Debouncer
}

// NewNutrientLoop constructs the loop. dosing_active starts true per
// spec.md §9 Open Question 2, confirmed as the chosen policy in DESIGN.md.
func NewNutrientLoop(deps *Deps, mixing *MixingLoop) *NutrientLoop {
	return &NutrientLoop{
		deps:         deps,
		mixing:       mixing,
		dosingActive: true,
		debounce:     audit.NewDebouncer(nutrientAlarmDebounceWindow),
	}
}

// OnStart is the JobNutrientStart handler.
func (l *NutrientLoop) OnStart(ctx context.Context) {
	onSecs, waitSecs, ratio := l.deps.Config.Nutrient()
	if onSecs <= 0 {
		return // spec.md §4.1 edge case: on_duration == 0 disables the loop
	}

	ecCfg := l.deps.Config.EC()
	reading, ok := l.deps.Snapshot.Latest(types.SensorEC, "")
	valid := ok && safety.ValidateEC(reading.Value)

	if !valid {
		l.skip(ctx, waitSecs)
		return
	}

	l.checkAdvisoryAlarms(ctx, *reading.Value, ecCfg)

	ec := *reading.Value
	lower := ecCfg.LowerBound()

	l.mu.Lock()
	wasActive := l.dosingActive
	var dose bool
	switch {
	case ec < lower:
		dose, l.dosingActive = true, true
	case ec < ecCfg.Target:
		dose = wasActive
		l.dosingActive = wasActive
	default:
		dose, l.dosingActive = false, false
	}
	l.mu.Unlock()

	if !dose {
		l.skip(ctx, waitSecs)
		return
	}

	if !l.deps.Guards.AllowAutomaticStart() {
		l.skip(ctx, waitSecs)
		return
	}

	onDuration := time.Duration(onSecs) * time.Second
	if !l.deps.Guards.Budget.CanDose(onDuration) {
		l.skip(ctx, waitSecs)
		return
	}

	l.dose(ctx, ratio, onDuration)
}

func (l *NutrientLoop) dose(ctx context.Context, ratio config.ABCRatioView, onDuration time.Duration) {
	names := map[string]string{"A": types.DeviceNutrientPumpA, "B": types.DeviceNutrientPumpB, "C": types.DeviceNutrientPumpC}
	letters := []string{"A", "B", "C"}
	values := ratio.Slice()

	for i, letter := range letters {
		if i >= len(values) {
			break
		}
		state := values[i] > 0
		_ = l.deps.Relay.SetRelay(ctx, names[letter], state)
		if state {
			l.deps.Guards.Timeout.StartPump(names[letter], safety.PumpHardTimeout)
		}
	}

	_ = l.deps.Audit.Append(ctx, audit.New("NutrientPump", audit.EventDosing, "nutrient_start", audit.SourceAutonomous).
		WithValue(audit.DosingValue{Ratio: values, OnDurationSecs: int(onDuration.Seconds())}))

	l.mixing.ExtendForDose(ctx, time.Duration(l.deps.Config.Mixing().TriggerMixingDurationSecs)*time.Second)

	stopAt := l.deps.Clock.Now().Add(onDuration)
	_ = l.deps.Scheduler.AddJob(ctx, JobNutrientStop, stopAt, JobNutrientStop)
}

// OnStop is the JobNutrientStop handler.
func (l *NutrientLoop) OnStop(ctx context.Context) {
	for _, name := range []string{types.DeviceNutrientPumpA, types.DeviceNutrientPumpB, types.DeviceNutrientPumpC} {
		_ = l.deps.Relay.SetRelay(ctx, name, false)
		l.deps.Guards.Timeout.StopPump(name)
	}

	_ = l.deps.Audit.Append(ctx, audit.New("NutrientPump", audit.EventDosing, "nutrient_stop", audit.SourceAutonomous))

	_, waitSecs, _ := l.deps.Config.Nutrient()
	l.reschedule(ctx, waitSecs)
}

func (l *NutrientLoop) skip(ctx context.Context, waitSecs int) {
	l.reschedule(ctx, waitSecs)
}

func (l *NutrientLoop) reschedule(ctx context.Context, waitSecs int) {
	if waitSecs <= 0 {
		return
	}
	if _, exists := l.deps.Scheduler.GetJob(JobNutrientStart); exists {
		return
	}
	fireAt := l.deps.Clock.Now().Add(time.Duration(waitSecs) * time.Second)
	_ = l.deps.Scheduler.AddJob(ctx, JobNutrientStart, fireAt, JobNutrientStart)
}

func (l *NutrientLoop) checkAdvisoryAlarms(ctx context.Context, ec float64, ecCfg config.ECConfig) {
	if ec < ecCfg.Min && l.debounce.Allow("ec_below_minimum") {
		_ = l.deps.Audit.Append(ctx, audit.New("EC", audit.EventAlarm, "ec_below_minimum", audit.SourceAutonomous).
			WithValue(fmt.Sprintf("%.3f", ec)))
	}
	if ec > ecCfg.Max && l.debounce.Allow("ec_above_maximum") {
		_ = l.deps.Audit.Append(ctx, audit.New("EC", audit.EventAlarm, "ec_above_maximum", audit.SourceAutonomous).
			WithValue(fmt.Sprintf("%.3f", ec)))
	}
}
