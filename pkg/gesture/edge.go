package gesture

// PoseEdge detects pose transitions on the raw pose stream so that a
// one-shot action fires once per transition, not once per repeated report.
type PoseEdge struct {
	last Pose
}

// Observe records p and reports whether it differs from the previous pose.
func (e *PoseEdge) Observe(p Pose) bool {
	if p == e.last {
		return false
	}
	e.last = p
	return true
}

// Reset forgets the previous pose, e.g. after the band disconnects.
func (e *PoseEdge) Reset() {
	e.last = PoseUnknown
}
