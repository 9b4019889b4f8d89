package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleItems() []Item {
	return []Item{
		{ID: 1, Name: "Flat White", Price: 3.20},
		{ID: 2, Name: "Croissant", Price: 2.80},
	}
}

func TestNewOrders_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Order, error)
		wantErr bool
	}{
		{
			name:  "valid eat-in",
			build: func() (*Order, error) { return NewEatInOrder(5, sampleItems(), 3, orderTime) },
		},
		{
			name:    "eat-in without table",
			build:   func() (*Order, error) { return NewEatInOrder(5, sampleItems(), 0, orderTime) },
			wantErr: true,
		},
		{
			name:  "valid takeaway",
			build: func() (*Order, error) { return NewTakeAwayOrder(5, sampleItems(), orderTime.Add(time.Hour), orderTime) },
		},
		{
			name:    "takeaway without pickup time",
			build:   func() (*Order, error) { return NewTakeAwayOrder(5, sampleItems(), time.Time{}, orderTime) },
			wantErr: true,
		},
		{
			name:  "valid delivery",
			build: func() (*Order, error) { return NewDeliveryOrder(5, sampleItems(), "12 Castle Street", orderTime) },
		},
		{
			name:    "delivery with blank address",
			build:   func() (*Order, error) { return NewDeliveryOrder(5, sampleItems(), "   ", orderTime) },
			wantErr: true,
		},
		{
			name:    "empty items",
			build:   func() (*Order, error) { return NewTakeAwayOrder(5, nil, orderTime, orderTime) },
			wantErr: true,
		},
		{
			name:    "non-positive customer",
			build:   func() (*Order, error) { return NewEatInOrder(0, sampleItems(), 1, orderTime) },
			wantErr: true,
		},
		{
			name: "negative price",
			build: func() (*Order, error) {
				return NewEatInOrder(5, []Item{{Name: "Refund", Price: -1}}, 1, orderTime)
			},
			wantErr: true,
		},
		{
			name: "unknown initial status",
			build: func() (*Order, error) {
				return NewEatInOrder(5, sampleItems(), 1, orderTime, WithStatus("LOST"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := tt.build()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				assert.Nil(t, o)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, o.Status)
			assert.Zero(t, o.ID)
		})
	}
}

func TestOrder_TotalFrozenAtConstruction(t *testing.T) {
	menu := sampleItems()
	o, err := NewEatInOrder(5, menu, 2, orderTime)
	require.NoError(t, err)
	assert.InDelta(t, 6.00, o.TotalPrice, 1e-9)

	// a later menu price change must not leak into the order
	menu[0].Price = 10
	assert.InDelta(t, 3.20, o.Items[0].Price, 1e-9)
	assert.InDelta(t, 6.00, o.TotalPrice, 1e-9)
}

func TestOrder_Validate(t *testing.T) {
	for _, build := range []func() (*Order, error){
		func() (*Order, error) { return NewEatInOrder(5, sampleItems(), 2, orderTime) },
		func() (*Order, error) { return NewTakeAwayOrder(5, sampleItems(), orderTime.Add(time.Hour), orderTime) },
		func() (*Order, error) {
			return NewDeliveryOrder(5, sampleItems(), "12 Castle Street", orderTime, WithEstimatedDelivery(20))
		},
	} {
		o, err := build()
		require.NoError(t, err)
		assert.NoError(t, o.Validate(), "constructed %s order", o.Kind)
	}

	o, err := NewTakeAwayOrder(5, sampleItems(), orderTime.Add(time.Hour), orderTime)
	require.NoError(t, err)
	o.TotalPrice += 0.01
	assert.ErrorIs(t, o.Validate(), ErrInvalidInput)
}

func TestOrder_Options(t *testing.T) {
	o, err := NewDeliveryOrder(5, sampleItems(), "12 Castle Street", orderTime,
		WithStatus(StatusPendingConfirmation), WithEstimatedDelivery(25))
	require.NoError(t, err)
	assert.Equal(t, StatusPendingConfirmation, o.Status)
	assert.Equal(t, 25, o.Delivery.EstimatedMinutes)
	assert.Equal(t, 0, o.DriverID())
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o, err := NewDeliveryOrder(5, sampleItems(), "12 Castle Street", orderTime)
	require.NoError(t, err)

	c := o.Clone()
	c.Items[0].Name = "changed"
	c.Delivery.DriverID = 9

	assert.Equal(t, "Flat White", o.Items[0].Name)
	assert.Equal(t, 0, o.Delivery.DriverID)
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, OrderStatus("nope").Valid())
}

func TestBooking_EndTimeAndActive(t *testing.T) {
	b := Booking{StartTime: orderTime, DurationMinutes: 90, Status: ReservationApproved, TableNumbers: []int{4}}
	assert.Equal(t, orderTime.Add(90*time.Minute), b.EndTime())
	assert.True(t, b.Active(orderTime))
	assert.False(t, b.Active(orderTime.Add(90*time.Minute)))
	assert.True(t, b.HasTable(4))

	c := b.Clone()
	c.TableNumbers[0] = 7
	assert.Equal(t, 4, b.TableNumbers[0])

	b.Status = ReservationCancelled
	assert.False(t, b.Active(orderTime))
}

func TestNewTable(t *testing.T) {
	tbl, err := NewTable(1, 2)
	require.NoError(t, err)
	assert.Equal(t, TableAvailable, tbl.Status)
	assert.Equal(t, "Table 1 (2 seats) - AVAILABLE", tbl.String())

	_, err = NewTable(0, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewTable(1, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
