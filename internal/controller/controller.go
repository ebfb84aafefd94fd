// Package controller wires every Ripple component together the way
// spec.md §9 ("Global mutable state") requires: one process-wide value per
// collaborator, constructed once here and handed to whichever package
// needs it — never a package-level singleton. It also owns the two
// process-wide behaviors that don't belong to any single loop: the 10 s
// main tick (spec.md §5) and the config hot-reload orchestrator (§4.7).
package controller

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/control"
	"github.com/lumina-grow/ripple/internal/loops"
	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/scheduler"
	"github.com/lumina-grow/ripple/internal/snapshot"
	"github.com/lumina-grow/ripple/internal/types"
)

// TickInterval is the main loop's fixed period (spec.md §5).
const TickInterval = 10 * time.Second

// HealthCheckInterval is how often the scheduler self-heal check runs
// (spec.md §4.8 "periodically (every ≈ 60 s)").
const HealthCheckInterval = 60 * time.Second

// Controller owns construction of the whole process and the two
// process-wide behaviors no single loop owns.
type Controller struct {
	Config    *config.Store
	Snapshot  *snapshot.Store
	Relay     *relay.Facade
	Scheduler *scheduler.Scheduler
	Guards    *safety.Guards
	Audit     audit.Sink
	Clock     ports.Clock
	Operator  *control.Operator

	Nutrient   *loops.NutrientLoop
	PH         *loops.PHLoop
	Sprinkler  *loops.SprinklerLoop
	Mixing     *loops.MixingLoop
	WaterLevel *loops.WaterLevelLoop

	log       *rlog.Logger
	reloadsfg singleflight.Group
}

// Deps is every externally-supplied collaborator New needs. Fields the
// host doesn't have yet (a fresh install) may be zero-valued; New supplies
// the rest.
type Deps struct {
	ConfigPath        string
	AssignmentsPath   string
	SnapshotPath      string
	EmergencyFlagPath string
	BudgetPath        string
	JobStorePath      string

	FileStore ports.FileStore
	RelayBus  ports.RelayBus
	Clock     ports.Clock
	AuditSink audit.Sink
}

// New constructs every collaborator and wires the loops' scheduler
// handlers. It does not start anything — call Start for that.
func New(deps Deps) (*Controller, error) {
	cfg := config.New(deps.ConfigPath)

	assignments, err := relay.LoadAssignments(deps.AssignmentsPath)
	if err != nil {
		return nil, err
	}
	facade := relay.New(deps.RelayBus, assignments)

	snap := snapshot.New(deps.FileStore, deps.SnapshotPath)

	jobStore, degraded := scheduler.Open(deps.JobStorePath)
	sched := scheduler.New(jobStore, deps.Clock, degraded)

	guards := safety.NewGuards(
		safety.NewEmergencyLatch(deps.FileStore, deps.EmergencyFlagPath),
		safety.NewTimeoutMonitor(deps.Clock),
		safety.NewRuntimeBudget(deps.FileStore, deps.BudgetPath, deps.Clock),
		safety.NewStuckSensorDetector(),
	)

	sink := deps.AuditSink
	if sink == nil {
		sink = audit.NopSink{}
	}

	ld := &loops.Deps{
		Config:    cfg,
		Snapshot:  snap,
		Relay:     facade,
		Scheduler: sched,
		Guards:    guards,
		Audit:     sink,
		Clock:     deps.Clock,
	}

	mixing := loops.NewMixingLoop(ld)
	nutrient := loops.NewNutrientLoop(ld, mixing)
	ph := loops.NewPHLoop(ld, mixing)
	sprinkler := loops.NewSprinklerLoop(ld)
	water := loops.NewWaterLevelLoop(ld)

	c := &Controller{
		Config:     cfg,
		Snapshot:   snap,
		Relay:      facade,
		Scheduler:  sched,
		Guards:     guards,
		Audit:      sink,
		Clock:      deps.Clock,
		Operator:   control.NewOperator(facade, cfg, guards, water, sink),
		Nutrient:   nutrient,
		PH:         ph,
		Sprinkler:  sprinkler,
		Mixing:     mixing,
		WaterLevel: water,
		log:        rlog.New("controller"),
	}

	sched.RegisterHandler(loops.JobNutrientStart, func(ctx context.Context, _ scheduler.Job) { nutrient.OnStart(ctx) })
	sched.RegisterHandler(loops.JobNutrientStop, func(ctx context.Context, _ scheduler.Job) { nutrient.OnStop(ctx) })
	sched.RegisterHandler(loops.JobPHStart, func(ctx context.Context, _ scheduler.Job) { ph.OnStart(ctx) })
	sched.RegisterHandler(loops.JobPHStop, func(ctx context.Context, _ scheduler.Job) { ph.OnStop(ctx) })
	sched.RegisterHandler(loops.JobSprinklerStart, func(ctx context.Context, _ scheduler.Job) { sprinkler.OnStart(ctx) })
	sched.RegisterHandler(loops.JobSprinklerStop, func(ctx context.Context, _ scheduler.Job) { sprinkler.OnStop(ctx) })
	sched.RegisterHandler(loops.JobMixingStart, func(ctx context.Context, _ scheduler.Job) { mixing.OnStart(ctx) })
	sched.RegisterHandler(loops.JobMixingStop, func(ctx context.Context, _ scheduler.Job) { mixing.OnStop(ctx) })
	sched.RegisterHandler(loops.JobWaterLevelCheck, func(ctx context.Context, _ scheduler.Job) { water.OnCheck(ctx) })

	if degraded {
		c.log.Warn("job store degraded: running with in-memory scheduler, jobs will not survive a restart")
	}

	return c, nil
}

// Start runs the boot-time sequence spec.md §4.1-§4.5 describe per loop,
// resumes the scheduler (firing any missed jobs), and self-heals any
// schedule left empty by a previous crash.
func (c *Controller) Start(ctx context.Context) {
	c.PH.ForceOff(ctx) // spec.md §4.2: both pH pumps forced OFF at boot
	c.Mixing.Start(ctx)
	c.Sprinkler.Start(ctx)
	c.applyPlumbingStartup(ctx)

	c.Scheduler.Resume(ctx)
	c.healthCheck(ctx)
}

// applyPlumbingStartup re-applies PLUMBING.<device>_on_at_startup for every
// assigned device not already owned by a dedicated loop's own startup
// sequence (spec.md §4.7 reload table, "PLUMBING: Re-apply startup
// valve/pump states"). Device names come from the relay assignment map, not
// the last-commanded-state cache — on a fresh boot nothing has been
// commanded yet, and enumerating the cache would silently skip every
// device. The pH pumps are excluded outright: spec.md §4.2 requires them
// forced OFF at boot "regardless of config", and PLUMBING re-application
// must never be able to override that.
func (c *Controller) applyPlumbingStartup(ctx context.Context) {
	owned := map[string]bool{
		types.DeviceMixingPump:  true,
		types.DeviceSprinklers:  true,
		types.DevicePHUpPump:    true,
		types.DevicePHDownPump:  true,
	}
	for _, name := range c.Relay.AssignedDeviceNames() {
		if owned[name] {
			continue
		}
		_ = c.Relay.SetRelay(ctx, name, c.Config.PlumbingStartup(name))
	}
}

// Run blocks, driving the 10 s main tick until ctx is canceled (spec.md
// §5: "a single background scheduler runs ... in a small worker pool").
// Each tick fans the audit flush, the pump-timeout sweep and the
// multi-sensor check out concurrently via errgroup, since none depends on
// another's result; the health check runs on its own HealthCheckInterval
// ticker.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	healthTicker := time.NewTicker(HealthCheckInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick(ctx)
		case <-healthTicker.C:
			c.healthCheck(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if sink, ok := c.Audit.(*audit.BufferedSink); ok {
			return sink.Flush(gctx)
		}
		return nil
	})
	g.Go(func() error {
		c.Guards.Timeout.CheckTimeouts(gctx, c.Relay, c.Guards.Emergency, c.Audit)
		return nil
	})
	g.Go(func() error {
		c.checkMultiSensorFailure(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		c.log.Warn("tick: %v", err)
	}
}

// checkMultiSensorFailure evaluates EC/pH/water-level validity against the
// current snapshot and trips the emergency latch if 2+ are invalid at once
// (spec.md §4.6) — each loop only checks its own sensor in isolation, so
// this is the one place a simultaneous multi-sensor fault (a shared bus
// fault, for instance) gets caught.
func (c *Controller) checkMultiSensorFailure(ctx context.Context) {
	ecReading, ecOK := c.Snapshot.Latest(types.SensorEC, "")
	phReading, phOK := c.Snapshot.Latest(types.SensorPH, "")
	waterReading, waterOK := c.Snapshot.Latest(types.SensorWaterLevel, "")

	ecValid := ecOK && safety.ValidateEC(ecReading.Value)
	phValid := phOK && safety.ValidatePH(phReading.Value)
	waterValid := waterOK && safety.ValidateWaterLevel(waterReading.Value)

	c.Guards.CheckMultiSensorFailure(ctx, ecValid, phValid, waterValid, c.Relay, c.Audit)
}

// healthCheck is the scheduler self-heal spec.md §4.8 describes: for each
// actuator with a positive on_duration, at least one of its _start/_stop
// jobs must exist; if both are absent, reinitialize its schedule. The
// per-item decision is scheduler.RunHealthCheck's job; this only builds
// the item list, skipping any actuator currently configured off.
func (c *Controller) healthCheck(ctx context.Context) {
	var items []scheduler.HealthCheckItem

	if onSecs, _, _ := c.Config.Nutrient(); onSecs > 0 {
		items = append(items, scheduler.HealthCheckItem{
			Name:         "nutrient",
			JobIDs:       []string{loops.JobNutrientStart, loops.JobNutrientStop},
			Reinitialize: func(ctx context.Context) { c.reinitNutrientSchedule(ctx) },
		})
	}
	if onSecs, _ := c.Config.PHPumpTiming(); onSecs > 0 {
		items = append(items, scheduler.HealthCheckItem{
			Name:         "pH",
			JobIDs:       []string{loops.JobPHStart, loops.JobPHStop},
			Reinitialize: func(ctx context.Context) { c.reinitPHSchedule(ctx) },
		})
	}
	if cfg := c.Config.Sprinkler(); cfg.SchedulingOn && cfg.OnDurationSecs > 0 {
		items = append(items, scheduler.HealthCheckItem{
			Name:         "sprinkler",
			JobIDs:       []string{loops.JobSprinklerStart, loops.JobSprinklerStop},
			Reinitialize: func(ctx context.Context) { c.reinitSprinklerSchedule(ctx) },
		})
	}
	if c.Config.Mixing().MixingDurationSecs > 0 {
		items = append(items, scheduler.HealthCheckItem{
			Name:         "mixing",
			JobIDs:       []string{loops.JobMixingStart, loops.JobMixingStop},
			Reinitialize: func(ctx context.Context) { c.Mixing.Start(ctx) },
		})
	}
	items = append(items, scheduler.HealthCheckItem{
		Name:         "water-level check",
		JobIDs:       []string{loops.JobWaterLevelCheck},
		Reinitialize: func(ctx context.Context) { c.reinitWaterLevelSchedule(ctx) },
	})

	c.Scheduler.RunHealthCheck(ctx, items)
}

func (c *Controller) reinitNutrientSchedule(ctx context.Context) {
	_ = c.Scheduler.AddJob(ctx, loops.JobNutrientStart, c.Clock.Now(), loops.JobNutrientStart)
}

func (c *Controller) reinitPHSchedule(ctx context.Context) {
	_ = c.Scheduler.AddJob(ctx, loops.JobPHStart, c.Clock.Now(), loops.JobPHStart)
}

func (c *Controller) reinitSprinklerSchedule(ctx context.Context) {
	_ = c.Scheduler.AddJob(ctx, loops.JobSprinklerStart, c.Clock.Now(), loops.JobSprinklerStart)
}

func (c *Controller) reinitWaterLevelSchedule(ctx context.Context) {
	_ = c.Scheduler.AddJob(ctx, loops.JobWaterLevelCheck, c.Clock.Now(), loops.JobWaterLevelCheck)
}
