package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHappyPathTransitions(t *testing.T) {
	path := []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransitionTo(path[i+1]), "%s -> %s should be legal", path[i], path[i+1])
	}
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{StatusPending, StatusReady},
		{StatusPending, StatusDelivered},
		{StatusConfirmed, StatusDelivered},
		{StatusPreparing, StatusCancelled},
		{StatusReady, StatusCancelled},
		{StatusDelivered, StatusPending},
		{StatusDelivered, StatusReady},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusReady, StatusConfirmed},
	}
	for _, tt := range tests {
		assert.False(t, tt.from.CanTransitionTo(tt.to), "%s -> %s should be illegal", tt.from, tt.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, OrderStatus("bogus").Terminal())
}

func TestCancellable(t *testing.T) {
	assert.True(t, StatusPending.Cancellable())
	assert.True(t, StatusConfirmed.Cancellable())
	assert.False(t, StatusPreparing.Cancellable())
	assert.False(t, StatusReady.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "preparing", "ready", "delivered", "cancelled"} {
		status, err := ParseStatus(raw)
		assert.NoError(t, err)
		assert.Equal(t, OrderStatus(raw), status)
	}

	_, err := ParseStatus("shipped")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}
