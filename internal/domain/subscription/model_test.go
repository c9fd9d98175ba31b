package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkpress/inkpress/internal/types"
)

func TestShouldApplyUpdate(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		currentStatus     types.SubscriptionStatus
		currentPeriodEnd  time.Time
		incomingStatus    types.SubscriptionStatus
		incomingPeriodEnd time.Time
		want              bool
	}{
		{
			name:              "later period always applies",
			currentStatus:     types.SubscriptionStatusActive,
			currentPeriodEnd:  base,
			incomingStatus:    types.SubscriptionStatusPastDue,
			incomingPeriodEnd: base.AddDate(0, 1, 0),
			want:              true,
		},
		{
			name:              "earlier period never applies",
			currentStatus:     types.SubscriptionStatusActive,
			currentPeriodEnd:  base,
			incomingStatus:    types.SubscriptionStatusCanceled,
			incomingPeriodEnd: base.AddDate(0, -1, 0),
			want:              false,
		},
		{
			name:              "equal period applies over live state",
			currentStatus:     types.SubscriptionStatusActive,
			currentPeriodEnd:  base,
			incomingStatus:    types.SubscriptionStatusPastDue,
			incomingPeriodEnd: base,
			want:              true,
		},
		{
			name:              "equal period does not undo cancellation",
			currentStatus:     types.SubscriptionStatusCanceled,
			currentPeriodEnd:  base,
			incomingStatus:    types.SubscriptionStatusActive,
			incomingPeriodEnd: base,
			want:              false,
		},
		{
			name:              "renewal reactivates a canceled subscription",
			currentStatus:     types.SubscriptionStatusCanceled,
			currentPeriodEnd:  base,
			incomingStatus:    types.SubscriptionStatusActive,
			incomingPeriodEnd: base.AddDate(0, 1, 0),
			want:              true,
		},
		{
			name:              "any snapshot beats the zero-period shell",
			currentStatus:     types.SubscriptionStatusIncomplete,
			currentPeriodEnd:  time.Time{},
			incomingStatus:    types.SubscriptionStatusActive,
			incomingPeriodEnd: base,
			want:              true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{
				SubscriptionStatus: tt.currentStatus,
				CurrentPeriodEnd:   tt.currentPeriodEnd,
			}
			assert.Equal(t, tt.want, sub.ShouldApplyUpdate(tt.incomingStatus, tt.incomingPeriodEnd))
		})
	}
}

func TestIsEntitling(t *testing.T) {
	assert.True(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusActive}).IsEntitling())
	assert.True(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusTrialing}).IsEntitling())
	assert.True(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusPastDue}).IsEntitling())
	assert.False(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusCanceled}).IsEntitling())
	assert.False(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusUnpaid}).IsEntitling())
	assert.False(t, (&Subscription{SubscriptionStatus: types.SubscriptionStatusIncomplete}).IsEntitling())
}
