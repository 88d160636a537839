package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPendingConfirmation, StatusInTransit, true},
		{StatusPendingConfirmation, StatusCancelled, true},
		{StatusPendingConfirmation, StatusCompleted, false},
		{StatusPendingConfirmation, StatusDelivered, false},
		{StatusPendingConfirmation, StatusReturned, false},
		{StatusInTransit, StatusCompleted, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusCancelled, true},
		{StatusInTransit, StatusReturned, false},
		{StatusCompleted, StatusReturned, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusDelivered, StatusReturned, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusReturned, false},
		{StatusCancelled, StatusPendingConfirmation, false},
		{StatusReturned, StatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []Status{
		StatusPendingConfirmation, StatusInTransit, StatusCompleted,
		StatusDelivered, StatusCancelled, StatusReturned,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("Shipped").Valid())

	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusReturned.Terminal())
	assert.False(t, StatusDelivered.Terminal())
	assert.False(t, Status("Shipped").Terminal())

	assert.True(t, StatusCancelled.Restocks())
	assert.True(t, StatusReturned.Restocks())
	assert.False(t, StatusCompleted.Restocks())
}

func TestStatusTimestampColumn(t *testing.T) {
	assert.Equal(t, "created_at", StatusPendingConfirmation.TimestampColumn())
	assert.Equal(t, "shipping_at", StatusInTransit.TimestampColumn())
	assert.Equal(t, "completed_at", StatusCompleted.TimestampColumn())
	assert.Equal(t, "canceled_at", StatusCancelled.TimestampColumn())
	assert.Equal(t, "returned_at", StatusReturned.TimestampColumn())
	// Everything else, Delivered included, maps to the delivery timestamp.
	assert.Equal(t, "delivery_at", StatusDelivered.TimestampColumn())
	assert.Equal(t, "delivery_at", Status("Shipped").TimestampColumn())
}

func TestOrderTransitionStampsOneTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	o := &Order{Status: StatusPendingConfirmation, CreatedAt: now.Add(-time.Hour)}

	o.Transition(StatusInTransit, now)
	assert.Equal(t, StatusInTransit, o.Status)
	require.NotNil(t, o.ShippingAt)
	assert.Equal(t, now, *o.ShippingAt)
	assert.Nil(t, o.CompletedAt)
	assert.Nil(t, o.DeliveryAt)
	assert.Nil(t, o.CanceledAt)
	assert.Nil(t, o.ReturnedAt)

	later := now.Add(48 * time.Hour)
	o.Transition(StatusDelivered, later)
	require.NotNil(t, o.DeliveryAt)
	assert.Equal(t, later, *o.DeliveryAt)
	assert.Equal(t, now, *o.ShippingAt)
}
