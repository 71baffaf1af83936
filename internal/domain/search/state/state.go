package state

// State is the lifecycle stage of a search query.
type State string

// Search lifecycle states.
const (
	// Idle shows the unranked, domain-ordered item list.
	Idle      State = "idle"
	Preparing State = "preparing"
	Ranking   State = "ranking"
	Done      State = "done"
	// Failed keeps the previously displayed results and reports a status message.
	Failed State = "failed"
)

// IsValid checks if the state is one of the supported values.
func (s State) IsValid() bool {
	return s == Idle || s == Preparing || s == Ranking || s == Done || s == Failed
}

// IsTerminal reports whether no further transition happens for the query.
func (s State) IsTerminal() bool {
	return s == Idle || s == Done || s == Failed
}
