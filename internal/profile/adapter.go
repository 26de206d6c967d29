package profile

// Adapter owns one session's History and Profile.
//
// Adapter is not safe for concurrent use; the owning engine serializes
// access.
type Adapter struct {
	profile Profile
	history *History
}

// NewAdapter returns an adapter with the default profile and a history of
// the given capacity.
func NewAdapter(capacity int) *Adapter {
	return &Adapter{
		profile: Default(),
		history: NewHistory(capacity),
	}
}

// Record appends one completed outcome and adapts the profile.
//
// The profile only moves when coherence exceeds AdaptAbove: cadence steps by
// (resonance − ½)·rate and tone by (coherence − ½)·rate/2.
func (a *Adapter) Record(coherence, resonance float64) {
	a.history.Append(Entry{Coherence: coherence, Resonance: resonance})

	p := a.profile
	if coherence > AdaptAbove {
		p.Cadence += (resonance - 0.5) * p.AdaptationRate
		p.Tone += (coherence - 0.5) * p.AdaptationRate * 0.5
	}
	a.profile = p.clamped()
}

// Profile returns a copy of the current profile.
func (a *Adapter) Profile() Profile {
	return a.profile
}

// History returns the live history for read-only use by the gate.
func (a *Adapter) History() *History {
	return a.history
}

// Reset restores the default profile and clears the history.
func (a *Adapter) Reset() {
	a.profile = Default()
	a.history.Clear()
}
