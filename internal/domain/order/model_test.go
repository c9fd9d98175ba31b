package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

func TestTransitionTo(t *testing.T) {
	tests := []struct {
		from    types.OrderStatus
		to      types.OrderStatus
		allowed bool
	}{
		{types.OrderStatusPending, types.OrderStatusCompleted, true},
		{types.OrderStatusPending, types.OrderStatusFailed, true},
		{types.OrderStatusPending, types.OrderStatusRefunded, false},
		{types.OrderStatusCompleted, types.OrderStatusRefunded, true},
		{types.OrderStatusCompleted, types.OrderStatusCompleted, false},
		{types.OrderStatusCompleted, types.OrderStatusPending, false},
		{types.OrderStatusCompleted, types.OrderStatusFailed, false},
		{types.OrderStatusFailed, types.OrderStatusCompleted, false},
		{types.OrderStatusRefunded, types.OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			o := &Order{ID: "ord_1", OrderStatus: tt.from}
			err := o.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, o.OrderStatus)
			} else {
				assert.Error(t, err)
				assert.True(t, ierr.IsInvalidOperation(err))
				assert.Equal(t, tt.from, o.OrderStatus)
			}
		})
	}
}

func TestValidateRequiresLineItems(t *testing.T) {
	o := &Order{ID: "ord_1", Currency: "usd", OrderStatus: types.OrderStatusPending}
	err := o.Validate()
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
