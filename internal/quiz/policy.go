package quiz

// Mode is the difficulty chosen at session creation.
type Mode string

const (
	ModeEasy   Mode = "easy"
	ModeMedium Mode = "medium"
	ModeHard   Mode = "hard"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeEasy, ModeMedium, ModeHard:
		return true
	}
	return false
}

// Action is the interaction a turn requires.
type Action string

const (
	ActionPick   Action = "pick"
	ActionRandom Action = "random"
)

// InitialAction is the action required on the first turn of a game.
func InitialAction(m Mode) Action {
	if m == ModeHard {
		return ActionRandom
	}
	return ActionPick
}

// NextAction is the action required after a turn resolves (answered,
// skipped or timed out).
func NextAction(m Mode, current Action) Action {
	switch m {
	case ModeMedium:
		if current == ActionPick {
			return ActionRandom
		}
		return ActionPick
	case ModeHard:
		return ActionRandom
	default:
		return ActionPick
	}
}

// CanInteract reports whether requested is allowed while the policy requires
// current. randomDrawActive is true when a drawn target awaits an answer.
//
// The draw lock itself (no second target while one is open) is enforced by
// the state machine, not here.
func CanInteract(m Mode, requested, current Action, randomDrawActive bool) bool {
	switch m {
	case ModeEasy:
		return true
	case ModeMedium:
		if requested == ActionPick {
			return current == ActionPick || randomDrawActive
		}
		return current == ActionRandom
	case ModeHard:
		if requested == ActionPick {
			return randomDrawActive
		}
		return true
	}
	return false
}
