package agent

// State is the phase of an agent's exploration cycle.
type State int

const (
	// Exploring agents scan on arrival and choose their next goal.
	Exploring State = iota
	// Following agents walk a planned path to a frontier goal.
	Following
	// Returning agents have nothing left to explore and walk home.
	Returning
	// Finished agents are home and take no further part. Terminal.
	Finished
)

func (s State) String() string {
	switch s {
	case Exploring:
		return "exploring"
	case Following:
		return "following"
	case Returning:
		return "returning"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Active reports whether the agent still explores, shares and mediates.
func (s State) Active() bool {
	return s == Exploring || s == Following
}
