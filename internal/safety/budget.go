package safety

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/rlog"
)

// DailyDosingBudgetSeconds is the combined daily runtime ceiling for every
// dosing pump (spec.md §4.6: "≤3600s/day"), grounded on
// original_source/src/runtime_tracker.py's DAILY_LIMIT_SECONDS.
const DailyDosingBudgetSeconds = 3600

// RuntimeBudget tracks cumulative dosing-pump runtime per local-timezone
// calendar day, persisted to a small JSON file so the budget survives a
// restart. Date keys are computed in the host's local timezone, matching
// runtime_tracker.py's datetime.now().strftime("%Y-%m-%d").
type RuntimeBudget struct {
	mu      sync.Mutex
	fs      ports.FileStore
	path    string
	clock   ports.Clock
	history map[string]int
	log     *rlog.Logger
}

// NewRuntimeBudget loads (or initializes) the runtime history at path.
func NewRuntimeBudget(fs ports.FileStore, path string, clock ports.Clock) *RuntimeBudget {
	b := &RuntimeBudget{fs: fs, path: path, clock: clock, log: rlog.New("dosing_budget")}
	b.history = b.load()
	return b
}

func (b *RuntimeBudget) load() map[string]int {
	data, err := b.fs.Read(b.path)
	if err != nil || len(data) == 0 {
		return map[string]int{}
	}
	var h map[string]int
	if err := json.Unmarshal(data, &h); err != nil {
		b.log.Warn("dosing runtime history %s is corrupt, starting fresh: %v", b.path, err)
		return map[string]int{}
	}
	return h
}

func (b *RuntimeBudget) save() error {
	data, err := json.MarshalIndent(b.history, "", "  ")
	if err != nil {
		return err
	}
	return b.fs.AtomicWrite(b.path, data, 0o644)
}

func (b *RuntimeBudget) todayKey() string {
	return b.clock.Now().Local().Format("2006-01-02")
}

// TodayTotal returns the accumulated dosing seconds recorded for today.
func (b *RuntimeBudget) TodayTotal() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history[b.todayKey()]
}

// CanDose reports whether a dose of plannedDuration would stay within the
// daily budget.
func (b *RuntimeBudget) CanDose(plannedDuration time.Duration) bool {
	planned := int(plannedDuration.Seconds())
	return b.TodayTotal()+planned <= DailyDosingBudgetSeconds
}

// RecordDose adds duration to today's total and persists the history.
func (b *RuntimeBudget) RecordDose(pumpName string, duration time.Duration) error {
	b.mu.Lock()
	key := b.todayKey()
	b.history[key] += int(duration.Seconds())
	err := b.save()
	b.mu.Unlock()

	if err != nil {
		b.log.Error("failed to persist dosing runtime history: %v", err)
	}
	return err
}
