package aiexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuit_TripsOnSameErrorStreak(t *testing.T) {
	c := NewCircuit(CircuitConfig{SameErrorThreshold: 3})

	c.RecordError("rate limit exceeded")
	assert.Equal(t, CircuitClosed, c.State())
	c.RecordError("rate limit exceeded")
	assert.Equal(t, CircuitClosed, c.State())
	c.RecordError("rate limit exceeded")
	assert.Equal(t, CircuitOpen, c.State())
}

func TestCircuit_DifferentErrorsDoNotAccumulate(t *testing.T) {
	c := NewCircuit(CircuitConfig{SameErrorThreshold: 2})

	c.RecordError("err A")
	c.RecordError("err B")
	c.RecordError("err C")
	assert.Equal(t, CircuitClosed, c.State())
}

func TestCircuit_SuccessResetsStreak(t *testing.T) {
	c := NewCircuit(CircuitConfig{SameErrorThreshold: 2})

	c.RecordError("boom")
	c.RecordSuccess()
	c.RecordError("boom")
	assert.Equal(t, CircuitClosed, c.State())
}

func TestCircuit_OpenTransitionsToHalfOpenAfterRecovery(t *testing.T) {
	c := NewCircuit(CircuitConfig{SameErrorThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	c.RecordError("boom")
	assert.Equal(t, CircuitOpen, c.State())
	assert.False(t, c.Allow())

	time.Sleep(15 * time.Millisecond)
	assert.True(t, c.Allow())
	assert.Equal(t, CircuitHalfOpen, c.State())
}

func TestCircuit_HalfOpenFailureReopensImmediately(t *testing.T) {
	c := NewCircuit(CircuitConfig{SameErrorThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})

	c.RecordError("boom")
	time.Sleep(10 * time.Millisecond)
	assert.True(t, c.Allow())

	c.RecordError("boom again")
	assert.Equal(t, CircuitOpen, c.State())
}
