package points

import "sort"

// FamilyDefault assigns a points-per-rep fallback to exercises whose normalized
// name contains Family. Entries are matched in order.
type FamilyDefault struct {
	Family       string `toml:"family" json:"family"`
	PointsPerRep int    `toml:"points_per_rep" json:"points_per_rep"`
}

// StreakTier awards Percent of base points once the streak reaches MinDays.
type StreakTier struct {
	MinDays int `toml:"min_days" json:"min_days"`
	Percent int `toml:"percent" json:"percent"`
}

// StreakBonus lists the streak tiers. Only the highest qualifying tier applies.
type StreakBonus struct {
	Tiers []StreakTier `toml:"tiers" json:"tiers"`
}

// PerfectFormBonus awards Percent of base points when validReps/totalReps reaches MinValidRatio.
type PerfectFormBonus struct {
	Percent       int     `toml:"percent" json:"percent"`
	MinValidRatio float64 `toml:"min_valid_ratio" json:"min_valid_ratio"`
}

// FirstWorkoutBonus is a flat award for the first completed workout of the day.
type FirstWorkoutBonus struct {
	Points int `toml:"points" json:"points"`
}

// Milestone maps an exact lifetime workout count to a flat award.
type Milestone struct {
	Workouts int `toml:"workouts" json:"workouts"`
	Points   int `toml:"points" json:"points"`
}

// MilestoneBonus lists lifetime-workout milestones.
type MilestoneBonus struct {
	Milestones []Milestone `toml:"milestones" json:"milestones"`
}

// Multipliers compose multiplicatively on top of base plus bonus points.
type Multipliers struct {
	Weekend float64 `toml:"weekend" json:"weekend"`
	Event   float64 `toml:"event" json:"event"`
}

// Config holds every threshold, percentage and flat award used by the Calculator.
type Config struct {
	DefaultPointsPerRep []FamilyDefault   `toml:"default_points_per_rep" json:"default_points_per_rep"`
	StreakBonus         StreakBonus       `toml:"streak_bonus" json:"streak_bonus"`
	PerfectForm         PerfectFormBonus  `toml:"perfect_form" json:"perfect_form"`
	FirstWorkout        FirstWorkoutBonus `toml:"first_workout" json:"first_workout"`
	Milestones          MilestoneBonus    `toml:"milestones" json:"milestones"`
	Multipliers         Multipliers       `toml:"multipliers" json:"multipliers"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPointsPerRep: []FamilyDefault{
			{Family: "pushup", PointsPerRep: 2},
			{Family: "situp", PointsPerRep: 1},
			{Family: "squat", PointsPerRep: 2},
		},
		StreakBonus: StreakBonus{Tiers: []StreakTier{
			{MinDays: 30, Percent: 50},
			{MinDays: 7, Percent: 25},
			{MinDays: 3, Percent: 10},
		}},
		PerfectForm:  PerfectFormBonus{Percent: 20, MinValidRatio: 1.0},
		FirstWorkout: FirstWorkoutBonus{Points: 50},
		Milestones: MilestoneBonus{Milestones: []Milestone{
			{Workouts: 10, Points: 100},
			{Workouts: 50, Points: 500},
			{Workouts: 100, Points: 1000},
			{Workouts: 250, Points: 2500},
			{Workouts: 500, Points: 5000},
			{Workouts: 1000, Points: 10000},
		}},
		Multipliers: Multipliers{Weekend: 1.5, Event: 1.0},
	}
}

// Overrides is a partial Config. Every non-nil field replaces the corresponding
// top-level section of the base config wholesale.
//
// Merging is shallow: overriding one streak tier means supplying the complete
// StreakBonus, and overriding the event multiplier means supplying both multipliers.
type Overrides struct {
	DefaultPointsPerRep []FamilyDefault    `toml:"default_points_per_rep"`
	StreakBonus         *StreakBonus       `toml:"streak_bonus"`
	PerfectForm         *PerfectFormBonus  `toml:"perfect_form"`
	FirstWorkout        *FirstWorkoutBonus `toml:"first_workout"`
	Milestones          *MilestoneBonus    `toml:"milestones"`
	Multipliers         *Multipliers       `toml:"multipliers"`
}

// Merge returns a copy of c with the sections present in o replaced.
func (c Config) Merge(o Overrides) Config {
	out := c.clone()
	if o.DefaultPointsPerRep != nil {
		out.DefaultPointsPerRep = append([]FamilyDefault(nil), o.DefaultPointsPerRep...)
	}
	if o.StreakBonus != nil {
		out.StreakBonus = StreakBonus{Tiers: append([]StreakTier(nil), o.StreakBonus.Tiers...)}
	}
	if o.PerfectForm != nil {
		out.PerfectForm = *o.PerfectForm
	}
	if o.FirstWorkout != nil {
		out.FirstWorkout = *o.FirstWorkout
	}
	if o.Milestones != nil {
		out.Milestones = MilestoneBonus{Milestones: append([]Milestone(nil), o.Milestones.Milestones...)}
	}
	if o.Multipliers != nil {
		out.Multipliers = *o.Multipliers
	}
	return out
}

func (c Config) clone() Config {
	out := c
	out.DefaultPointsPerRep = append([]FamilyDefault(nil), c.DefaultPointsPerRep...)
	out.StreakBonus.Tiers = append([]StreakTier(nil), c.StreakBonus.Tiers...)
	out.Milestones.Milestones = append([]Milestone(nil), c.Milestones.Milestones...)
	return out
}

// tiersDescending orders tiers so the first match is the highest qualifying one.
func tiersDescending(tiers []StreakTier) []StreakTier {
	out := append([]StreakTier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinDays > out[j].MinDays
	})
	return out
}
