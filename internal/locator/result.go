package locator

// Outcome records what happened when a strategy ran.
type Outcome int

const (
	// NotAttempted means the strategy never ran: an earlier one succeeded,
	// or its preconditions were missing.
	NotAttempted Outcome = iota
	// Absent means the strategy ran and did not find the library.
	Absent
	// Found means the strategy produced a directory holding the library.
	Found
	// Errored means the strategy ran and failed with an I/O error.
	Errored
)

func (o Outcome) String() string {
	switch o {
	case NotAttempted:
		return "not-attempted"
	case Absent:
		return "absent"
	case Found:
		return "found"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Probe is the record of one strategy run.
type Probe struct {
	Step    string
	Outcome Outcome
	Dir     string // set when Outcome is Found
	Err     error  // why the strategy failed or was skipped, if known
}

// Result is the outcome of Locate. Dir is empty on failure; Probes always
// lists every strategy in chain order.
type Result struct {
	Dir    string
	Probes []Probe
}

// Winner returns the probe that found the library.
func (r *Result) Winner() (Probe, bool) {
	for _, p := range r.Probes {
		if p.Outcome == Found {
			return p, true
		}
	}
	return Probe{}, false
}
