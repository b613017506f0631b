package mqtt

// pendingMsg stores a serialized message for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO holding messages while the broker is
// unreachable. Oldest messages are dropped on overflow. Not safe for
// concurrent use; the publisher's mutex covers it.
type backlog struct {
	msgs    []pendingMsg
	cap     int
	dropped int
}

func newBacklog(capacity int) *backlog {
	return &backlog{cap: capacity}
}

func (b *backlog) push(m pendingMsg) {
	if len(b.msgs) == b.cap {
		b.msgs = b.msgs[1:]
		b.dropped++
	}
	b.msgs = append(b.msgs, m)
}

// drain returns all pending messages oldest-first and empties the backlog.
func (b *backlog) drain() (msgs []pendingMsg, dropped int) {
	msgs, dropped = b.msgs, b.dropped
	b.msgs = nil
	b.dropped = 0
	return msgs, dropped
}

func (b *backlog) len() int { return len(b.msgs) }
