package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type event struct {
	Kind    string
	Targets []string
	Payload string
}

func kindIs(kind string) Filter[event] {
	return FieldEquals(func(e event) string { return e.Kind }, kind)
}

func TestFieldEquals(t *testing.T) {
	f := kindIs("join")
	assert.True(t, f.Accept(event{Kind: "join"}))
	assert.False(t, f.Accept(event{Kind: "leave"}))
}

func TestFieldContains(t *testing.T) {
	f := FieldContains(func(e event) []string { return e.Targets }, "alice")
	assert.True(t, f.Accept(event{Targets: []string{"bob", "alice"}}))
	assert.False(t, f.Accept(event{Targets: []string{"bob"}}))
	assert.False(t, f.Accept(event{}))
}

func TestFieldContainsString(t *testing.T) {
	f := FieldContainsString(func(e event) string { return e.Payload }, "err")
	assert.True(t, f.Accept(event{Payload: "fatal error"}))
	assert.False(t, f.Accept(event{Payload: "all good"}))
}

func TestFieldLengthModes(t *testing.T) {
	length := func(e event) int { return len(e.Payload) }

	assert.True(t, FieldLength(length, 3, LengthEq).Accept(event{Payload: "abc"}))
	assert.False(t, FieldLength(length, 3, LengthEq).Accept(event{Payload: "ab"}))

	assert.True(t, FieldLength(length, 1, LengthMin).Accept(event{Payload: "x"}))
	assert.False(t, FieldLength(length, 1, LengthMin).Accept(event{Payload: ""}))

	assert.True(t, FieldLength(length, 2, LengthMax).Accept(event{Payload: "ab"}))
	assert.False(t, FieldLength(length, 2, LengthMax).Accept(event{Payload: "abc"}))
}

func TestBooleanAlgebra(t *testing.T) {
	join := kindIs("join")
	targeted := FieldContains(func(e event) []string { return e.Targets }, "alice")

	msg := event{Kind: "join", Targets: []string{"alice"}}
	other := event{Kind: "leave", Targets: []string{"bob"}}

	assert.True(t, And(join, targeted).Accept(msg))
	assert.False(t, And(join, targeted).Accept(other))

	assert.True(t, Or(join, targeted).Accept(event{Kind: "join"}))
	assert.False(t, Or(join, targeted).Accept(other))

	assert.False(t, Not(join).Accept(msg))
	assert.True(t, Not(join).Accept(other))
}

func TestComplementLaws(t *testing.T) {
	f := kindIs("join")
	for _, msg := range []event{{Kind: "join"}, {Kind: "leave"}} {
		assert.False(t, And(f, Not(f)).Accept(msg))
		assert.True(t, Or(f, Not(f)).Accept(msg))
	}
}

func TestDeMorgan(t *testing.T) {
	a := kindIs("join")
	b := FieldContainsString(func(e event) string { return e.Payload }, "x")

	cases := []event{
		{Kind: "join", Payload: "x"},
		{Kind: "join", Payload: "y"},
		{Kind: "leave", Payload: "x"},
		{Kind: "leave", Payload: "y"},
	}
	for _, msg := range cases {
		assert.Equal(t,
			Not(And(a, b)).Accept(msg),
			Or(Not(a), Not(b)).Accept(msg),
		)
		assert.Equal(t,
			Not(Or(a, b)).Accept(msg),
			And(Not(a), Not(b)).Accept(msg),
		)
	}
}

type statusEvent interface{ status() }
type connected struct{}
type disconnected struct{}

func (connected) status()    {}
func (disconnected) status() {}

func TestTypeIs(t *testing.T) {
	f := TypeIs[statusEvent, connected]()
	assert.True(t, f.Accept(connected{}))
	assert.False(t, f.Accept(disconnected{}))
}
