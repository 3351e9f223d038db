package resolver

// State is a step of the resolution state machine.
type State int

const (
	// StateStart queries the primary source.
	StateStart State = iota
	// StateNeedsManualPosition asks the operator for the whole position.
	StateNeedsManualPosition
	// StatePositionKnown walks the distance fallbacks.
	StatePositionKnown
	// StateDone computes the cartesian position when distance is known.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateNeedsManualPosition:
		return "needs_manual_position"
	case StatePositionKnown:
		return "position_known"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// DistanceSource records where a resolved distance came from.
type DistanceSource int

const (
	DistanceNone DistanceSource = iota
	DistanceCatalog
	DistanceCrossMatch
	DistanceParallax
	DistanceManual
)

func (d DistanceSource) String() string {
	switch d {
	case DistanceCatalog:
		return "catalog"
	case DistanceCrossMatch:
		return "cross-match"
	case DistanceParallax:
		return "parallax"
	case DistanceManual:
		return "manual"
	default:
		return "none"
	}
}

// Estimated reports whether the distance is derived rather than read from a
// catalog distance measurement.
func (d DistanceSource) Estimated() bool {
	return d == DistanceParallax || d == DistanceManual
}
