package rules

// Event identifies the ticket lifecycle moment a trigger is scoped to.
type Event string

const (
	EventTicketCreated Event = "ticket.created"
	EventTicketUpdated Event = "ticket.updated"
	EventTicketAny     Event = "ticket.any"
)

// FieldTicketEvent is the synthetic context key that carries the lifecycle
// moment ("created" or "updated") for one evaluation pass.
const FieldTicketEvent = "ticket_event"

// InferEvent derives the event a condition group is scoped to. The builder UI
// has no separate event selector: scope is expressed through a ticket_event
// condition, and the trigger's stored event column is a cached projection of
// the conditions, recomputed on every save. Without such a condition the
// trigger defaults to ticket.updated.
func InferEvent(all, any []Condition) Event {
	if e, ok := scanEvent(all); ok {
		return e
	}
	if e, ok := scanEvent(any); ok {
		return e
	}
	return EventTicketUpdated
}

func scanEvent(conds []Condition) (Event, bool) {
	for _, c := range conds {
		if c.Field != FieldTicketEvent {
			continue
		}
		switch c.Value {
		case "created":
			return EventTicketCreated, true
		case "updated":
			return EventTicketUpdated, true
		case "any":
			return EventTicketAny, true
		}
	}
	return "", false
}

// Matches reports whether a trigger scoped to e fires for lifecycle event
// evt. Triggers scoped to ticket.any fire for every lifecycle event.
func (e Event) Matches(evt Event) bool {
	return e == evt || e == EventTicketAny
}

// ContextValue returns the value the ticket_event context key carries for
// this lifecycle event.
func (e Event) ContextValue() string {
	if e == EventTicketCreated {
		return "created"
	}
	return "updated"
}
