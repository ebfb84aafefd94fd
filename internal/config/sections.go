package config

// Section and key names from spec.md §3's "Recognized config entries"
// table. Kept as constants so loop code never spells out raw strings.
const (
	SectionEC             = "EC"
	SectionPH              = "pH"
	SectionNutrientPump    = "NutrientPump"
	SectionSprinkler       = "Sprinkler"
	SectionMixing          = "Mixing"
	SectionWaterLevel      = "WaterLevel"
	SectionPlumbing        = "PLUMBING"
	SectionSystem          = "SYSTEM"
)

// ECConfig is the EC section's operational values (spec.md §3).
type ECConfig struct {
	Target   float64
	Deadband float64
	Min      float64
	Max      float64
}

// LowerBound is the hysteresis trigger point target-deadband (spec.md §4.1).
func (c ECConfig) LowerBound() float64 { return c.Target - c.Deadband }

// EC reads the EC section.
func (s *Store) EC() ECConfig {
	return ECConfig{
		Target:   s.GetFloat(SectionEC, "ec_target", 1.0),
		Deadband: s.GetFloat(SectionEC, "ec_deadband", 0.1),
		Min:      s.GetFloat(SectionEC, "ec_min", 0),
		Max:      s.GetFloat(SectionEC, "ec_max", 99),
	}
}

// PHConfig is the pH section's operational values (spec.md §3).
type PHConfig struct {
	Target   float64
	Deadband float64
	Min      float64
	Max      float64
}

// PH reads the pH section.
func (s *Store) PH() PHConfig {
	return PHConfig{
		Target:   s.GetFloat(SectionPH, "ph_target", 6.0),
		Deadband: s.GetFloat(SectionPH, "ph_deadband", 0.2),
		Min:      s.GetFloat(SectionPH, "ph_min", 4.0),
		Max:      s.GetFloat(SectionPH, "ph_max", 8.0),
	}
}

// Nutrient reads the nutrient dosing timing and ratio.
func (s *Store) Nutrient() (onSecs, waitSecs int, ratio ABCRatioView) {
	onSecs = s.GetDurationSeconds(SectionNutrientPump, "nutrient_pump_on_duration", 0)
	waitSecs = s.GetDurationSeconds(SectionNutrientPump, "nutrient_pump_wait_duration", 0)
	r := s.GetABCRatio(SectionNutrientPump, "abc_ratio")
	ratio = ABCRatioView{A: r.A, B: r.B, C: r.C}
	return
}

// ABCRatioView is a plain copy of types.ABCRatio exposed here to avoid a
// forced import in call sites that only need the three fields.
type ABCRatioView struct{ A, B, C int }

// Slice returns [a, b, c].
func (r ABCRatioView) Slice() []int { return []int{r.A, r.B, r.C} }

// PHPumpTiming reads the pH dosing timing (NutrientPump.ph_* keys per spec.md §3).
func (s *Store) PHPumpTiming() (onSecs, waitSecs int) {
	onSecs = s.GetDurationSeconds(SectionNutrientPump, "ph_pump_on_duration", 0)
	waitSecs = s.GetDurationSeconds(SectionNutrientPump, "ph_pump_wait_duration", 120)
	return
}

// SprinklerConfig is the Sprinkler section's operational values (spec.md §3).
type SprinklerConfig struct {
	OnDurationSecs   int
	WaitDurationSecs int
	SchedulingOn     bool
	OnAtStartup      bool
}

// Sprinkler reads the Sprinkler section.
func (s *Store) Sprinkler() SprinklerConfig {
	return SprinklerConfig{
		OnDurationSecs:   s.GetDurationSeconds(SectionSprinkler, "sprinkler_on_duration", 0),
		WaitDurationSecs: s.GetDurationSeconds(SectionSprinkler, "sprinkler_wait_duration", 0),
		SchedulingOn:     s.GetBool(SectionSprinkler, "sprinkler_scheduling_enabled", true),
		OnAtStartup:      s.GetBool(SectionSprinkler, "sprinkler_on_at_startup", false),
	}
}

// MixingConfig is the Mixing section's operational values (spec.md §3).
type MixingConfig struct {
	MixingDurationSecs        int
	MixingIntervalSecs        int
	TriggerMixingDurationSecs int
}

// Mixing reads the Mixing section.
func (s *Store) Mixing() MixingConfig {
	return MixingConfig{
		MixingDurationSecs:        s.GetDurationSeconds(SectionMixing, "mixing_duration", 0),
		MixingIntervalSecs:        s.GetDurationSeconds(SectionMixing, "mixing_interval", 0),
		TriggerMixingDurationSecs: s.GetDurationSeconds(SectionMixing, "trigger_mixing_duration", 0),
	}
}

// WaterLevelConfig is the WaterLevel section's operational values (spec.md §3).
type WaterLevelConfig struct {
	Target             float64
	Deadband           float64
	Min                float64
	Max                float64
	ControlEnabled     bool
	SafetyFloor        float64
	MaxDrainDurSecs    int
}

// LowerBound is target-deadband, the refill trigger point (spec.md §4.5).
func (c WaterLevelConfig) LowerBound() float64 { return c.Target - c.Deadband }

// WaterLevel reads the WaterLevel section.
func (s *Store) WaterLevel() WaterLevelConfig {
	return WaterLevelConfig{
		Target:          s.GetFloat(SectionWaterLevel, "water_level_target", 80),
		Deadband:        s.GetFloat(SectionWaterLevel, "water_level_deadband", 10),
		Min:             s.GetFloat(SectionWaterLevel, "water_level_min", 50),
		Max:             s.GetFloat(SectionWaterLevel, "water_level_max", 100),
		ControlEnabled:  s.GetBool(SectionWaterLevel, "water_level_control_enabled", true),
		SafetyFloor:     s.GetFloat(SectionWaterLevel, "tank_dump_safety_floor", 30),
		MaxDrainDurSecs: s.GetDurationSeconds(SectionWaterLevel, "tank_dump_max_duration_seconds", 1800),
	}
}

// PlumbingStartup returns the startup on/off state for a plumbing device
// (spec.md §3 "PLUMBING.<device>_on_at_startup").
func (s *Store) PlumbingStartup(device string) bool {
	return s.GetBool(SectionPlumbing, device+"_on_at_startup", false)
}
