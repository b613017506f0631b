package sensorlink

// FakeTransport records actions for test assertions.
type FakeTransport struct {
	// Actions contains every action passed to Do, in order.
	Actions []Action

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Do records the action.
func (f *FakeTransport) Do(a Action) {
	f.Actions = append(f.Actions, a)
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.Closed = true
	return nil
}

// Kinds returns just the recorded action kinds, for compact assertions.
func (f *FakeTransport) Kinds() []ActionKind {
	kinds := make([]ActionKind, len(f.Actions))
	for i, a := range f.Actions {
		kinds[i] = a.Kind
	}
	return kinds
}

// Reset clears recorded actions.
func (f *FakeTransport) Reset() {
	f.Actions = nil
	f.Closed = false
}
