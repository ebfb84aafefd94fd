package controller

import (
	"context"
	"fmt"

	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/loops"
)

// Reload is the ConfigReloadSource entry point spec.md §4.7 describes: the
// host's file watcher (out of scope) calls this with the set of section
// names it detected changed. Each section's side effect runs as its own
// step; a panic or error in one section must not prevent the others from
// running, so each is recovered independently and falls back to a full
// re-read on failure.
//
// singleflight collapses duplicate notifications for the same section
// that arrive while a previous reload of it is still running — the host's
// debounce already coalesces rapid edits, this only protects against two
// overlapping Reload calls naming the same section.
func (c *Controller) Reload(ctx context.Context, changedSections map[string]struct{}) {
	for section := range changedSections {
		section := section
		_, err, _ := c.reloadsfg.Do(section, func() (interface{}, error) {
			return nil, c.reloadSectionSafe(ctx, section)
		})
		if err != nil {
			c.log.Error("reload %s failed (%v), falling back to full reload", section, err)
			c.fullReload(ctx)
			return
		}
	}
}

// reloadSectionSafe wraps reloadSection with panic recovery, converting a
// panic into an error so Reload's caller can trigger the full-reload
// fallback spec.md §4.7 requires without risking re-entering the same
// panicking section from inside its own recover.
func (c *Controller) reloadSectionSafe(ctx context.Context, section string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	c.reloadSection(ctx, section)
	return nil
}

func (c *Controller) reloadSection(ctx context.Context, section string) {
	switch section {
	case config.SectionMixing:
		c.reloadMixing(ctx)
	case config.SectionNutrientPump:
		c.reloadNutrientPump(ctx)
	case config.SectionSprinkler:
		c.reloadSprinkler(ctx)
	case config.SectionEC, config.SectionPH:
		// Targets are read fresh on every getter call; nothing to
		// invalidate. Re-evaluating is implicit in the next scheduled tick.
	case config.SectionWaterLevel:
		c.WaterLevel.OnCheck(ctx)
	case config.SectionPlumbing:
		c.applyPlumbingStartup(ctx)
	default:
		c.log.Warn("reload: unrecognized section %q, ignoring", section)
	}
}

// reloadMixing implements spec.md §4.7's Mixing row: stop the pump, cancel
// mixing_stop, and start a new cycle if the new duration is positive. With
// a zero duration the mixing_start that OnStop schedules is canceled too.
func (c *Controller) reloadMixing(ctx context.Context) {
	c.Mixing.OnStop(ctx)
	_ = c.Scheduler.RemoveJob(loops.JobMixingStop)
	if c.Config.Mixing().MixingDurationSecs > 0 {
		c.Mixing.Start(ctx)
	} else {
		_ = c.Scheduler.RemoveJob(loops.JobMixingStart)
	}
}

// reloadNutrientPump implements spec.md §4.7's NutrientPump row for both
// the nutrient and pH key groups sharing this section: an on_duration of
// zero disables the loop immediately; any other change takes effect on
// the next scheduled tick, so nothing else needs to happen now.
func (c *Controller) reloadNutrientPump(ctx context.Context) {
	onSecs, _, _ := c.Config.Nutrient()
	if onSecs == 0 {
		c.Nutrient.OnStop(ctx)
		_ = c.Scheduler.RemoveJob(loops.JobNutrientStart)
		_ = c.Scheduler.RemoveJob(loops.JobNutrientStop)
	}

	phSecs, _ := c.Config.PHPumpTiming()
	if phSecs == 0 {
		c.PH.ForceOff(ctx)
		_ = c.Scheduler.RemoveJob(loops.JobPHStart)
		_ = c.Scheduler.RemoveJob(loops.JobPHStop)
	}
}

// reloadSprinkler implements spec.md §4.7's Sprinkler row: always stop
// first; if scheduling is now disabled, cancel everything; otherwise start
// a cycle immediately if on_duration increased or wait_duration decreased,
// else just reschedule the next start at now + the new wait_duration.
func (c *Controller) reloadSprinkler(ctx context.Context) {
	before := c.Config.Sprinkler()
	c.Sprinkler.OnStop(ctx)
	_ = c.Scheduler.RemoveJob(loops.JobSprinklerStart)
	_ = c.Scheduler.RemoveJob(loops.JobSprinklerStop)

	if !before.SchedulingOn {
		return
	}

	after := c.Config.Sprinkler()
	if !after.SchedulingOn {
		return
	}
	if after.OnDurationSecs > before.OnDurationSecs || after.WaitDurationSecs < before.WaitDurationSecs {
		c.Sprinkler.OnStart(ctx)
		return
	}
	c.Sprinkler.Start(ctx)
}

// fullReload is the "any failure falls back to a full reload" escape
// hatch (spec.md §4.7) — every section re-evaluated, in the fixed order
// EC -> pH -> NutrientPump -> Mixing -> Sprinkler -> WaterLevel -> PLUMBING
// so cross-section effects (e.g. a pump stop before a valve re-apply)
// happen in the same order a cold boot would produce them.
func (c *Controller) fullReload(ctx context.Context) {
	c.reloadSection(ctx, config.SectionEC)
	c.reloadSection(ctx, config.SectionPH)
	c.reloadSection(ctx, config.SectionNutrientPump)
	c.reloadSection(ctx, config.SectionMixing)
	c.reloadSection(ctx, config.SectionSprinkler)
	c.reloadSection(ctx, config.SectionWaterLevel)
	c.reloadSection(ctx, config.SectionPlumbing)
}
