package session

// Termination records why Receive stopped reading.
type Termination int

const (
	// TerminationIdle: data arrived, then a read timed out. The normal case.
	TerminationIdle Termination = iota
	// TerminationSilent: the first read timed out with nothing received.
	TerminationSilent
	// TerminationClosed: the peer closed its side.
	TerminationClosed
	// TerminationError: a read failed for a reason other than a timeout.
	TerminationError
	// TerminationLimit: MaxResponseBytes was reached.
	TerminationLimit
)

func (t Termination) String() string {
	switch t {
	case TerminationIdle:
		return "idle"
	case TerminationSilent:
		return "silent"
	case TerminationClosed:
		return "closed"
	case TerminationError:
		return "error"
	case TerminationLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// Response is the byte stream accumulated by one Receive call.
type Response struct {
	Payload     []byte
	Chunks      int
	Termination Termination
}

// Silent reports whether nothing at all was received.
func (r Response) Silent() bool {
	return len(r.Payload) == 0
}
