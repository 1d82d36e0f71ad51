package booking

import (
	"slices"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
)

type Transition string

const (
	TransitionCreate            Transition = "create"
	TransitionConfirm           Transition = "confirm"
	TransitionDecline           Transition = "decline"
	TransitionStart             Transition = "start"
	TransitionComplete          Transition = "complete"
	TransitionConfirmCompletion Transition = "confirm-completion"
	TransitionDispute           Transition = "dispute"
	TransitionCancel            Transition = "cancel"
	TransitionReschedule        Transition = "reschedule"
)

type party int

const (
	partyProvider party = iota
	partyCustomer
	partyAnyOrAdmin
)

type rule struct {
	from     []Status
	to       Status
	actor    party
	eventKey string
}

// rules is the complete edge list. Anything not listed here is rejected.
var rules = map[Transition]rule{
	TransitionConfirm: {
		from: []Status{StatusPending}, to: StatusConfirmed,
		actor: partyProvider, eventKey: "booking.confirmed",
	},
	TransitionDecline: {
		from: []Status{StatusPending}, to: StatusCancelled,
		actor: partyProvider, eventKey: "booking.declined",
	},
	TransitionStart: {
		from: []Status{StatusConfirmed}, to: StatusInProgress,
		actor: partyProvider, eventKey: "booking.started",
	},
	TransitionComplete: {
		from: []Status{StatusInProgress}, to: StatusAwaitingConfirmation,
		actor: partyProvider, eventKey: "booking.work_completed",
	},
	TransitionConfirmCompletion: {
		from: []Status{StatusAwaitingConfirmation}, to: StatusCompleted,
		actor: partyCustomer, eventKey: "booking.completed",
	},
	TransitionDispute: {
		from: []Status{StatusAwaitingConfirmation}, to: StatusInProgress,
		actor: partyCustomer, eventKey: "booking.disputed",
	},
	TransitionCancel: {
		from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelled,
		actor: partyAnyOrAdmin, eventKey: "booking.cancelled",
	},
	// A CONFIRMED booking goes back to PENDING; a PENDING one stays PENDING.
	TransitionReschedule: {
		from: []Status{StatusPending, StatusConfirmed}, to: StatusPending,
		actor: partyCustomer, eventKey: "booking.rescheduled",
	},
}

const createdEventKey = "booking.created"

// authorize checks the actor against the booking's parties. It does not look at status.
func authorize(actor auth.Actor, b *Booking, t Transition) error {
	r, ok := rules[t]
	if !ok {
		return ErrForbidden
	}

	switch r.actor {
	case partyProvider:
		if actor.Role == auth.RoleProvider && actor.ID == b.ProviderID {
			return nil
		}
	case partyCustomer:
		if actor.Role == auth.RoleCustomer && actor.ID == b.CustomerID {
			return nil
		}
	case partyAnyOrAdmin:
		switch actor.Role {
		case auth.RoleAdmin:
			return nil
		case auth.RoleCustomer:
			if actor.ID == b.CustomerID {
				return nil
			}
		case auth.RoleProvider:
			if actor.ID == b.ProviderID {
				return nil
			}
		}
	}
	return ErrForbidden
}

// canView allows the two parties and admins.
func canView(actor auth.Actor, b *Booking) bool {
	switch actor.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleCustomer:
		return actor.ID == b.CustomerID
	case auth.RoleProvider:
		return actor.ID == b.ProviderID
	}
	return false
}

func checkFrom(t Transition, current Status) error {
	if slices.Contains(rules[t].from, current) {
		return nil
	}
	return &TransitionError{Transition: t, Current: current}
}
