package identify

// voteRing is a bounded FIFO of recent identity decisions for one
// detection slot. Oldest entries are evicted on overflow.
type voteRing struct {
	labels []string
	start  int
	count  int
}

func newVoteRing(capacity int) *voteRing {
	return &voteRing{labels: make([]string, capacity)}
}

func (r *voteRing) push(label string) {
	if r.count < len(r.labels) {
		r.labels[(r.start+r.count)%len(r.labels)] = label
		r.count++
		return
	}
	r.labels[r.start] = label
	r.start = (r.start + 1) % len(r.labels)
}

// majority returns the most frequent label and its count, scanning in
// insertion order so that ties resolve to the first label reaching the
// maximum count. Deterministic for identical vote histories.
func (r *voteRing) majority() (string, int) {
	if r.count == 0 {
		return Unknown, 0
	}

	counts := make(map[string]int, r.count)
	bestLabel := ""
	bestCount := 0
	for i := range r.count {
		label := r.labels[(r.start+i)%len(r.labels)]
		counts[label]++
		if counts[label] > bestCount {
			bestCount = counts[label]
			bestLabel = label
		}
	}
	return bestLabel, bestCount
}

// Voter stabilizes per-frame identity decisions with temporal majority
// voting. One vote buffer is kept per detection slot index; slot indices
// are only meaningful within consecutive ticks and carry no identity.
type Voter struct {
	window   int
	required int
	buffers  map[int]*voteRing
}

// NewVoter creates a voter with the given rolling window size and the
// minimum vote count a label needs before it is trusted.
func NewVoter(window, required int) *Voter {
	return &Voter{
		window:   window,
		required: required,
		buffers:  make(map[int]*voteRing),
	}
}

// Vote records a candidate label for a detection slot and returns the
// stabilized label: the window majority if it is a real label with at
// least the required number of votes, Unknown otherwise.
func (v *Voter) Vote(slot int, candidate string) string {
	ring, ok := v.buffers[slot]
	if !ok {
		ring = newVoteRing(v.window)
		v.buffers[slot] = ring
	}

	ring.push(candidate)

	label, count := ring.majority()
	if label == Unknown || count < v.required {
		return Unknown
	}
	return label
}

// Retain drops vote buffers for detection slots not present in the current
// tick, so buffers do not accumulate for vanished detections.
func (v *Voter) Retain(active map[int]struct{}) {
	for slot := range v.buffers {
		if _, ok := active[slot]; !ok {
			delete(v.buffers, slot)
		}
	}
}

// Slots returns the number of tracked detection slots.
func (v *Voter) Slots() int {
	return len(v.buffers)
}
