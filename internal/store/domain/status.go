package domain

// Status is the order lifecycle state. The string values are stored as-is
// and are part of the persisted schema, so they must not be renamed.
type Status string

const (
	StatusPendingConfirmation Status = "Pending Confirmation"
	StatusInTransit           Status = "In Transit"
	StatusCompleted           Status = "Completed"
	StatusDelivered           Status = "Delivered"
	StatusCancelled           Status = "Cancelled"
	StatusReturned            Status = "Returned"
)

// transitions is the allowed edge set of the lifecycle graph. Cancelled and
// Returned are terminal: once compensation has run it may never run again.
var transitions = map[Status][]Status{
	StatusPendingConfirmation: {StatusInTransit, StatusCancelled},
	StatusInTransit:           {StatusCompleted, StatusDelivered, StatusCancelled},
	StatusCompleted:           {StatusReturned},
	StatusDelivered:           {StatusReturned},
	StatusCancelled:           {},
	StatusReturned:            {},
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether to is directly reachable from s.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// Restocks reports whether entering s returns the order's line quantities
// to inventory.
func (s Status) Restocks() bool {
	return s == StatusCancelled || s == StatusReturned
}

// TimestampColumn returns the timestamp column stamped when an order enters
// this status. Unknown statuses fall through to delivery_at.
func (s Status) TimestampColumn() string {
	switch s {
	case StatusPendingConfirmation:
		return "created_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "canceled_at"
	case StatusReturned:
		return "returned_at"
	case StatusInTransit:
		return "shipping_at"
	default:
		return "delivery_at"
	}
}
