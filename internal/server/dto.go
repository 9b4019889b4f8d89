package server

import (
	"time"

	"cafe-system/internal/models"
)

// CreateBookingRequest is the body of POST /bookings
type CreateBookingRequest struct {
	CustomerID      int       `json:"customer_id" validate:"required,gt=0"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gt=0,lte=720"`
	Guests          int       `json:"guests" validate:"required,gt=0,lte=50"`
}

// AssignTableRequest is the body of POST /bookings/{id}/tables
type AssignTableRequest struct {
	TableNumber int `json:"table_number" validate:"required,gt=0"`
}

// TableStatusRequest is the body of PUT /tables/{number}/status
type TableStatusRequest struct {
	Status models.TableStatus `json:"status" validate:"required,oneof=AVAILABLE RESERVED OCCUPIED UNAVAILABLE"`
}

// ItemRequest is one line of a new order
type ItemRequest struct {
	ID    int     `json:"id" validate:"gte=0"`
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Price float64 `json:"price" validate:"gte=0"`
}

// PlaceOrderRequest is the body of POST /orders. The kind decides which of
// table_number, pickup_time and delivery_address is required.
type PlaceOrderRequest struct {
	CustomerID       int           `json:"customer_id" validate:"required,gt=0"`
	Kind             string        `json:"kind" validate:"required,oneof=eat_in takeaway delivery"`
	Items            []ItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	TableNumber      int           `json:"table_number" validate:"required_if=Kind eat_in,gte=0"`
	PickupTime       *time.Time    `json:"pickup_time" validate:"required_if=Kind takeaway"`
	DeliveryAddress  string        `json:"delivery_address" validate:"required_if=Kind delivery,max=200"`
	EstimatedMinutes int           `json:"estimated_minutes" validate:"gte=0"`
	// Confirm starts the order in PENDING_CONFIRMATION for the confirmation flow
	Confirm bool `json:"confirm"`
}

// AssignDriverRequest is the body of PUT /orders/{id}/driver
type AssignDriverRequest struct {
	DriverID int `json:"driver_id" validate:"required,gt=0"`
}

// OrderStatusRequest is the body of PUT /orders/{id}/status and POST /orders/{id}/transition
type OrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// StatusResponse is returned by GET /orders/{id}/status
type StatusResponse struct {
	OrderID int                `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

func (r *PlaceOrderRequest) items() []models.Item {
	items := make([]models.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, models.Item{ID: it.ID, Name: it.Name, Price: it.Price})
	}
	return items
}

// toOrder builds the domain order; the constructors freeze the total
func (r *PlaceOrderRequest) toOrder(now time.Time) (*models.Order, error) {
	var opts []models.OrderOption
	if r.Confirm {
		opts = append(opts, models.WithStatus(models.StatusPendingConfirmation))
	}

	switch models.OrderKind(r.Kind) {
	case models.KindEatIn:
		return models.NewEatInOrder(r.CustomerID, r.items(), r.TableNumber, now, opts...)
	case models.KindTakeAway:
		var pickup time.Time
		if r.PickupTime != nil {
			pickup = *r.PickupTime
		}
		return models.NewTakeAwayOrder(r.CustomerID, r.items(), pickup, now, opts...)
	default:
		opts = append(opts, models.WithEstimatedDelivery(r.EstimatedMinutes))
		return models.NewDeliveryOrder(r.CustomerID, r.items(), r.DeliveryAddress, now, opts...)
	}
}
