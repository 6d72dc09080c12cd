package streak

import "fmt"

// Message returns motivational copy for a streak state.
func Message(state State) string {
	n := state.CurrentStreak
	switch {
	case state.Status == StatusBroken:
		return "Your streak has ended. Start a new one today!"
	case state.Status == StatusAtRisk:
		return fmt.Sprintf("Your %d-day streak is at risk! Work out today to keep it alive.", n)
	case state.Status == StatusNew || n == 0:
		return "Complete your first workout to start a streak!"
	case n < 7:
		return fmt.Sprintf("%d-day streak! Keep the momentum going.", n)
	case n < 30:
		return fmt.Sprintf("%d-day streak! You're on fire!", n)
	default:
		return fmt.Sprintf("%d-day streak! You're a legend!", n)
	}
}
