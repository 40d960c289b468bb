package domain

import (
	"strings"

	"roomservice/internal/apperr"
)

type Status string

const (
	StatusProcessing     Status = "processing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDone           Status = "done"
	StatusCanceled       Status = "canceled"
)

// Transitions is the order lifecycle. A status with no entries is terminal.
var Transitions = map[Status][]Status{
	StatusProcessing:     {StatusOutForDelivery, StatusCanceled},
	StatusOutForDelivery: {StatusDone},
	StatusDone:           {},
	StatusCanceled:       {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Transitions[st]; !ok {
		return "", apperr.Validation("unknown order status %q", s)
	}
	return st, nil
}

func (s Status) Terminal() bool { return len(Transitions[s]) == 0 }

// Allowed returns the statuses reachable from s in one step.
func (s Status) Allowed() []Status { return Transitions[s] }

// CheckTransition reports whether an order may move from one status to another.
func CheckTransition(from, to Status) error {
	if _, ok := Transitions[to]; !ok {
		return apperr.Validation("unknown order status %q", to)
	}
	if from == to {
		return apperr.Conflict("order is already %s", to)
	}
	next := Transitions[from]
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	if len(next) == 0 {
		return apperr.Conflict("order is %s and can no longer change status", from)
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return apperr.Conflict("cannot move order from %s to %s; allowed: %s", from, to, strings.Join(names, ", "))
}
