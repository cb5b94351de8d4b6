// internal/models/order_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestOrderStatusIsValid(t *testing.T) {
	assert.True(t, OrderStatusProcessing.IsValid())
	assert.False(t, OrderStatus("refunded").IsValid())
}

func TestJSONBScan(t *testing.T) {
	var j JSONB
	assert.NoError(t, j.Scan([]byte(`{"full_name":"Ada"}`)))
	assert.Equal(t, "Ada", j["full_name"])

	assert.NoError(t, j.Scan(nil))
	assert.Nil(t, j)
}

func TestUserPassword(t *testing.T) {
	u := &User{}
	assert.NoError(t, u.SetPassword("Secret123!"))
	assert.NotEqual(t, "Secret123!", u.PasswordHash)
	assert.NoError(t, u.CheckPassword("Secret123!"))
	assert.Error(t, u.CheckPassword("wrong"))
}
