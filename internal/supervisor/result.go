package supervisor

// Outcome is how a supervised action ended.
type Outcome int

const (
	Completed Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "COMPLETED"
	case TimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}
