package domain

// Recorder accumulates domain events produced by entity mutations. Entities
// embed it; the unit of work drains it after a successful commit so events
// never leak when the enclosing transaction rolls back.
type Recorder struct {
	events []Event
}

func (r *Recorder) record(e Event) {
	r.events = append(r.events, e)
}

// CollectEvents returns the accumulated events in recording order and clears
// the buffer. Each event is delivered to the dispatch pipeline exactly once
// per aggregate snapshot: a second call in a row yields nil.
func (r *Recorder) CollectEvents() []Event {
	events := r.events
	r.events = nil
	return events
}

// PendingEvents reports how many events are buffered without draining them.
func (r *Recorder) PendingEvents() int {
	return len(r.events)
}

// EventSource is the aggregate-side contract the unit of work drains.
type EventSource interface {
	CollectEvents() []Event
}
