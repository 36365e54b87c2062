package resilience

type Outcome int

const (
	OK Outcome = iota
	NotFound
	CallerFault
	Degraded
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case CallerFault:
		return "caller_fault"
	default:
		return "degraded"
	}
}

// Result is what the enrichment core sees of one remote lookup.
// On Degraded, Value holds the fallback and Err the reason.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

func (r Result[T]) Found() bool {
	return r.Outcome == OK || r.Outcome == Degraded
}
