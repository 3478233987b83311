package ap

import "fmt"

type State int

const (
	NotAuthenticated State = iota
	Authenticated
	Associated
)

func (s State) String() string {
	switch s {
	case NotAuthenticated:
		return "not-authenticated"
	case Authenticated:
		return "authenticated"
	case Associated:
		return "associated"
	default:
		return fmt.Sprintf("[UNKNOWN STATE=%d]", int(s))
	}
}

// Outcome says what became of one frame handed to the access point.
type Outcome int

const (
	OutcomeReplied Outcome = iota
	// OutcomeUpdated means the state machine consumed the frame without answering.
	OutcomeUpdated
	OutcomeForwarded
	// OutcomeNotAssociated is a data frame from a station that has not finished associating.
	OutcomeNotAssociated
	OutcomeIgnored
	// OutcomeOffChannel means no access point serves the tuned channel, so nothing answers.
	OutcomeOffChannel
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplied:
		return "replied"
	case OutcomeUpdated:
		return "updated"
	case OutcomeForwarded:
		return "forwarded"
	case OutcomeNotAssociated:
		return "not-associated"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeOffChannel:
		return "off-channel"
	default:
		return fmt.Sprintf("[UNKNOWN OUTCOME=%d]", int(o))
	}
}
