// Package points computes gamification points for a workout session.
//
// A Calculator is a pure function of its Config, its Clock and the call arguments:
// identical inputs at the same instant always produce the same Result.
package points

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/domain"
)

// BonusInput carries the user-history facts needed for bonuses.
// A nil *BonusInput yields a bonus-free preview calculation.
type BonusInput struct {
	CurrentStreak          int  `json:"current_streak" yaml:"current_streak"`
	IsFirstWorkoutToday    bool `json:"is_first_workout_today" yaml:"is_first_workout_today"`
	TotalWorkoutsCompleted int  `json:"total_workouts_completed" yaml:"total_workouts_completed"`
}

// Breakdown itemizes how a total was reached.
type Breakdown struct {
	BasePoints        int      `json:"base_points"`
	StreakBonus       int      `json:"streak_bonus"`
	PerfectFormBonus  int      `json:"perfect_form_bonus"`
	FirstWorkoutBonus int      `json:"first_workout_bonus"`
	MilestoneBonus    int      `json:"milestone_bonus"`
	Multiplier        float64  `json:"multiplier"`
	AppliedBonuses    []string `json:"applied_bonuses"`
}

// Result is the outcome of a points calculation.
type Result struct {
	BasePoints  int       `json:"base_points"`
	BonusPoints int       `json:"bonus_points"`
	TotalPoints int       `json:"total_points"`
	Breakdown   Breakdown `json:"breakdown"`
}

// Option configures optional behaviour for the Calculator.
type Option func(*Calculator)

// WithLocation sets the time zone used to decide whether "now" falls on a weekend.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// Calculator turns rep counts into points.
type Calculator struct {
	cfg   Config
	tiers []StreakTier
	clock clock.Clock
	loc   *time.Location
}

// NewCalculator constructs a Calculator. The config is copied, so later changes
// to the caller's value do not affect calculations in flight.
func NewCalculator(cfg Config, clk clock.Clock, opts ...Option) *Calculator {
	if clk == nil {
		clk = clock.System{}
	}
	cfg = cfg.clone()
	c := &Calculator{
		cfg:   cfg,
		tiers: tiersDescending(cfg.StreakBonus.Tiers),
		clock: clk,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// At returns a calculator that evaluates the weekend multiplier as of ts instead of the
// current time. The configuration is shared, not copied.
func (c *Calculator) At(ts time.Time) *Calculator {
	out := *c
	out.clock = clock.NewFixed(ts)
	return &out
}

// Config returns a copy of the active configuration.
func (c *Calculator) Config() Config {
	return c.cfg.clone()
}

// Calculate computes points for validReps out of totalReps on the given exercise.
func (c *Calculator) Calculate(exercise domain.Exercise, validReps, totalReps int, bonus *BonusInput) Result {
	base := validReps * c.PointsPerRep(exercise)
	breakdown := Breakdown{
		BasePoints:     base,
		AppliedBonuses: []string{},
	}

	if bonus != nil {
		if pct := c.streakPercent(bonus.CurrentStreak); pct > 0 {
			breakdown.StreakBonus = percentOf(base, pct)
			if breakdown.StreakBonus > 0 {
				breakdown.AppliedBonuses = append(breakdown.AppliedBonuses, fmt.Sprintf("%d-day streak", bonus.CurrentStreak))
			}
		}

		if c.isPerfectForm(validReps, totalReps) {
			breakdown.PerfectFormBonus = percentOf(base, c.cfg.PerfectForm.Percent)
			if breakdown.PerfectFormBonus > 0 {
				breakdown.AppliedBonuses = append(breakdown.AppliedBonuses, "Perfect form")
			}
		}

		if bonus.IsFirstWorkoutToday && c.cfg.FirstWorkout.Points > 0 {
			breakdown.FirstWorkoutBonus = c.cfg.FirstWorkout.Points
			breakdown.AppliedBonuses = append(breakdown.AppliedBonuses, "First workout today")
		}

		if award := c.milestoneAward(bonus.TotalWorkoutsCompleted); award > 0 {
			breakdown.MilestoneBonus = award
			breakdown.AppliedBonuses = append(breakdown.AppliedBonuses, fmt.Sprintf("%d workouts milestone", bonus.TotalWorkoutsCompleted))
		}
	}

	breakdown.Multiplier = c.multiplier()

	bonusPoints := breakdown.StreakBonus + breakdown.PerfectFormBonus + breakdown.FirstWorkoutBonus + breakdown.MilestoneBonus
	total := int(math.Floor(float64(base+bonusPoints) * breakdown.Multiplier))

	return Result{
		BasePoints:  base,
		BonusPoints: bonusPoints,
		TotalPoints: total,
		Breakdown:   breakdown,
	}
}

// PointsPerRep resolves the rate for an exercise: the catalog value, else the
// first matching family default, else 1.
func (c *Calculator) PointsPerRep(exercise domain.Exercise) int {
	if exercise.PointsPerRep > 0 {
		return exercise.PointsPerRep
	}
	name := normalizeName(exercise.Name)
	for _, fam := range c.cfg.DefaultPointsPerRep {
		family := normalizeName(fam.Family)
		if family != "" && strings.Contains(name, family) {
			return fam.PointsPerRep
		}
	}
	return 1
}

func (c *Calculator) streakPercent(streak int) int {
	for _, tier := range c.tiers {
		if streak >= tier.MinDays {
			return tier.Percent
		}
	}
	return 0
}

func (c *Calculator) isPerfectForm(validReps, totalReps int) bool {
	if totalReps <= 0 {
		return false
	}
	return float64(validReps)/float64(totalReps) >= c.cfg.PerfectForm.MinValidRatio
}

func (c *Calculator) milestoneAward(totalWorkouts int) int {
	for _, m := range c.cfg.Milestones.Milestones {
		if m.Workouts == totalWorkouts {
			return m.Points
		}
	}
	return 0
}

func (c *Calculator) multiplier() float64 {
	m := 1.0
	switch c.clock.Now().In(c.loc).Weekday() {
	case time.Saturday, time.Sunday:
		if c.cfg.Multipliers.Weekend > 0 {
			m *= c.cfg.Multipliers.Weekend
		}
	}
	if c.cfg.Multipliers.Event > 0 {
		m *= c.cfg.Multipliers.Event
	}
	return m
}

// percentOf floors base*pct/100 using integer arithmetic.
func percentOf(base, pct int) int {
	return base * pct / 100
}

// normalizeName lowercases and keeps letters and digits, so "Push-Ups" matches "pushup".
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
