package converter

// State is a phase of a conversion run
type State int

const (
	// StateIdle is the state before Convert is called
	StateIdle State = iota
	// StateValidatingInput checks the input path and output stem
	StateValidatingInput
	// StateStreamingConversion reads the input and appends batches
	StateStreamingConversion
	// StateFinalizing writes the sidecar and moves artifacts into place
	StateFinalizing
	// StateSucceeded is terminal: both artifacts exist
	StateSucceeded
	// StateFailed is terminal: see Converter.Failure for the kind
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateValidatingInput:     "validating_input",
	StateStreamingConversion: "streaming_conversion",
	StateFinalizing:          "finalizing",
	StateSucceeded:           "succeeded",
	StateFailed:              "failed",
}

// String returns the snake_case name of the state
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// allowed lists the legal transitions; every non-terminal state may fail
var allowed = map[State][]State{
	StateIdle:                {StateValidatingInput},
	StateValidatingInput:     {StateStreamingConversion, StateFailed},
	StateStreamingConversion: {StateFinalizing, StateFailed},
	StateFinalizing:          {StateSucceeded, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
