package profile

// DefaultCapacity bounds a History created with a non-positive capacity.
const DefaultCapacity = 64

// neutralMean is reported by MeanCoherence when there is nothing to average.
const neutralMean = 0.5

// Entry is one completed gate outcome.
type Entry struct {
	Coherence float64 `json:"coherence"`
	Resonance float64 `json:"resonance"`
}

// History is a bounded ring of entries. Once full, each append evicts the
// oldest entry. The zero value holds DefaultCapacity entries.
type History struct {
	buf   []Entry
	start int
	n     int
}

// NewHistory returns an empty history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{buf: make([]Entry, capacity)}
}

// Cap returns the maximum number of retained entries.
func (h *History) Cap() int {
	return len(h.buf)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return h.n
}

// Append records e, evicting the oldest entry when full.
func (h *History) Append(e Entry) {
	if len(h.buf) == 0 {
		h.buf = make([]Entry, DefaultCapacity)
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = e
		h.n++
		return
	}
	h.buf[h.start] = e
	h.start = (h.start + 1) % len(h.buf)
}

// Entries returns the retained entries, oldest first.
func (h *History) Entries() []Entry {
	if h == nil {
		return nil
	}
	out := make([]Entry, h.n)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// MeanCoherence averages the coherence of the newest window entries.
// window <= 0 averages everything retained. An empty history reports 0.5.
func (h *History) MeanCoherence(window int) float64 {
	n := h.Len()
	if n == 0 {
		return neutralMean
	}
	if window <= 0 || window > n {
		window = n
	}
	var sum float64
	for i := n - window; i < n; i++ {
		sum += h.buf[(h.start+i)%len(h.buf)].Coherence
	}
	return sum / float64(window)
}

// Clear drops every entry and keeps the capacity.
func (h *History) Clear() {
	h.start = 0
	h.n = 0
}
