package buttons

// FakeInput is a test double that returns scripted edges.
type FakeInput struct {
	// Script contains the edges to hand out, one slice per Poll call.
	// Once exhausted, Poll returns nil.
	Script [][]Edge

	// index tracks current position in Script.
	index int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeInput creates a FakeInput with the given per-poll script.
func NewFakeInput(script [][]Edge) *FakeInput {
	return &FakeInput{Script: script}
}

// Push appends one more poll's worth of edges to the script.
func (f *FakeInput) Push(edges ...Edge) {
	f.Script = append(f.Script, edges)
}

// Poll returns the next scripted batch of edges.
func (f *FakeInput) Poll() []Edge {
	if f.index >= len(f.Script) {
		return nil
	}
	edges := f.Script[f.index]
	f.index++
	return edges
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Closed = false
}
