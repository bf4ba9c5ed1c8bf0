package zoo

type EventKind int

const (
	Started EventKind = iota
	Progress
	Cleared
	Completed
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Progress:
		return "progress"
	case Cleared:
		return "cleared"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

type Stage string

const (
	StageLoading       Stage = "loading"
	StagePreprocessing Stage = "preprocessing"
	StageInference     Stage = "inference"
	StageDecoding      Stage = "decoding"
)

// Percent is where the progress indicator sits when the stage starts.
func (s Stage) Percent() int {
	switch s {
	case StageLoading:
		return 10
	case StagePreprocessing:
		return 67
	case StageInference:
		return 85
	default:
		return 100
	}
}

// Event reports the progress of a Classify call. Stage, Message and Percent are only set for
// Progress events.
type Event struct {
	Kind    EventKind `json:"kind"`
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Percent int       `json:"percent,omitempty"`
}

type Reporter func(Event)

func progressEvent(stage Stage, message string) Event {
	return Event{Kind: Progress, Stage: stage, Message: message, Percent: stage.Percent()}
}

// StageError tells which step of a classification failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
