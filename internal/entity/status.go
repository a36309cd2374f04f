package entity

import "fmt"

// OrderStatus is the closed set of states an order moves through.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the legal successor set for each state. Terminal states have
// no successors.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus validates a raw status string against the closed set.
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown order status: %q", raw)
	}
	return s, nil
}

// Valid reports whether the status belongs to the closed set.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	succ, ok := transitions[s]
	return ok && len(succ) == 0
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}
