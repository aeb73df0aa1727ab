package pubsub

import "strings"

// Filter is a pure predicate over messages of a topic. Filters must be
// side-effect free and must not block; they run on the publisher's
// goroutine while the bus fans a message out.
type Filter[M any] interface {
	Accept(msg M) bool
}

type filterFunc[M any] func(M) bool

func (f filterFunc[M]) Accept(msg M) bool { return f(msg) }

// And accepts a message only when both filters accept it.
func And[M any](left, right Filter[M]) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		return left.Accept(msg) && right.Accept(msg)
	})
}

// Or accepts a message when either filter accepts it.
func Or[M any](left, right Filter[M]) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		return left.Accept(msg) || right.Accept(msg)
	})
}

// Not inverts a filter.
func Not[M any](inner Filter[M]) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		return !inner.Accept(msg)
	})
}

// FieldEquals accepts messages whose selected field equals value.
func FieldEquals[M any, V comparable](selector func(M) V, value V) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		return selector(msg) == value
	})
}

// FieldContains accepts messages whose selected slice field contains value.
func FieldContains[M any, V comparable](selector func(M) []V, value V) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		for _, v := range selector(msg) {
			if v == value {
				return true
			}
		}
		return false
	})
}

// FieldContainsString accepts messages whose selected string field contains
// value as a substring.
func FieldContainsString[M any](selector func(M) string, value string) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		return strings.Contains(selector(msg), value)
	})
}

// LengthMode selects the comparison FieldLength performs.
type LengthMode int

const (
	// LengthEq matches an exact length.
	LengthEq LengthMode = iota
	// LengthMin matches lengths greater than or equal to the bound.
	LengthMin
	// LengthMax matches lengths less than or equal to the bound.
	LengthMax
)

// FieldLength accepts messages based on the length of a field. The selector
// returns the field's length (callers wrap the field access in len).
func FieldLength[M any](selector func(M) int, length int, mode LengthMode) Filter[M] {
	return filterFunc[M](func(msg M) bool {
		got := selector(msg)
		switch mode {
		case LengthEq:
			return got == length
		case LengthMin:
			return got >= length
		case LengthMax:
			return got <= length
		}
		return false
	})
}

// TypeIs accepts messages whose dynamic type is V. It is meant for topics
// whose message type is an interface with several concrete variants.
func TypeIs[M any, V any]() Filter[M] {
	return filterFunc[M](func(msg M) bool {
		_, ok := any(msg).(V)
		return ok
	})
}
