package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OrderKind represents the type of an order
type OrderKind string

const (
	KindEatIn    OrderKind = "eat_in"
	KindTakeAway OrderKind = "takeaway"
	KindDelivery OrderKind = "delivery"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"

	StatusPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	StatusConfirmed           OrderStatus = "CONFIRMED"
	StatusPreparing           OrderStatus = "PREPARING"
	StatusReady               OrderStatus = "READY"
	StatusServed              OrderStatus = "SERVED"
	StatusCollected           OrderStatus = "COLLECTED"
	StatusDelivered           OrderStatus = "DELIVERED"
	StatusCancelled           OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted,
		StatusPendingConfirmation, StatusConfirmed, StatusPreparing, StatusReady,
		StatusServed, StatusCollected, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item is a priced line of an order, copied from the menu at order time
type Item struct {
	ID    int     `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Price float64 `json:"price" db:"price"`
}

// EatInDetails is the payload of an eat-in order
type EatInDetails struct {
	TableNumber int `json:"table_number"`
}

// TakeAwayDetails is the payload of a takeaway order
type TakeAwayDetails struct {
	PickupTime time.Time `json:"pickup_time"`
}

// DeliveryDetails is the payload of a delivery order
type DeliveryDetails struct {
	Address          string `json:"address"`
	DriverID         int    `json:"driver_id"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// Order is a customer order. Exactly one of EatIn, TakeAway and Delivery
// is set, matching Kind.
type Order struct {
	ID         int         `json:"id" db:"id"`
	CustomerID int         `json:"customer_id" db:"customer_id"`
	Kind       OrderKind   `json:"kind" db:"kind"`
	Items      []Item      `json:"items"`
	Status     OrderStatus `json:"status" db:"status"`
	OrderedAt  time.Time   `json:"ordered_at" db:"ordered_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
	TotalPrice float64     `json:"total_price" db:"total_price"`

	EatIn    *EatInDetails    `json:"eat_in,omitempty"`
	TakeAway *TakeAwayDetails `json:"takeaway,omitempty"`
	Delivery *DeliveryDetails `json:"delivery,omitempty"`
}

// OrderOption adjusts an order under construction
type OrderOption func(*Order)

// WithStatus sets the initial status, e.g. PENDING_CONFIRMATION for
// orders that go through the confirmation flow
func WithStatus(status OrderStatus) OrderOption {
	return func(o *Order) {
		o.Status = status
	}
}

// WithEstimatedDelivery sets the estimated delivery duration in minutes
func WithEstimatedDelivery(minutes int) OrderOption {
	return func(o *Order) {
		if o.Delivery != nil {
			o.Delivery.EstimatedMinutes = minutes
		}
	}
}

// NewEatInOrder creates an order served at a table
func NewEatInOrder(customerID int, items []Item, tableNumber int, now time.Time, opts ...OrderOption) (*Order, error) {
	if tableNumber <= 0 {
		return nil, fmt.Errorf("%w: table_number must be positive", ErrInvalidInput)
	}
	o, err := newOrder(KindEatIn, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.EatIn = &EatInDetails{TableNumber: tableNumber}
	return o.apply(opts)
}

// NewTakeAwayOrder creates an order collected at pickupTime
func NewTakeAwayOrder(customerID int, items []Item, pickupTime time.Time, now time.Time, opts ...OrderOption) (*Order, error) {
	if pickupTime.IsZero() {
		return nil, fmt.Errorf("%w: pickup_time is required for takeaway orders", ErrInvalidInput)
	}
	o, err := newOrder(KindTakeAway, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.TakeAway = &TakeAwayDetails{PickupTime: pickupTime}
	return o.apply(opts)
}

// NewDeliveryOrder creates an order delivered to address, with no driver yet
func NewDeliveryOrder(customerID int, items []Item, address string, now time.Time, opts ...OrderOption) (*Order, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: delivery_address is required for delivery orders", ErrInvalidInput)
	}
	o, err := newOrder(KindDelivery, customerID, items, now)
	if err != nil {
		return nil, err
	}
	o.Delivery = &DeliveryDetails{Address: address}
	return o.apply(opts)
}

func newOrder(kind OrderKind, customerID int, items []Item, now time.Time) (*Order, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer_id must be positive", ErrInvalidInput)
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	snapshot := append([]Item(nil), items...)
	return &Order{
		CustomerID: customerID,
		Kind:       kind,
		Items:      snapshot,
		Status:     StatusPending,
		OrderedAt:  now,
		UpdatedAt:  now,
		TotalPrice: CalculateTotal(snapshot),
	}, nil
}

func (o *Order) apply(opts []OrderOption) (*Order, error) {
	for _, opt := range opts {
		opt(o)
	}
	if !o.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, o.Status)
	}
	if o.Delivery != nil && o.Delivery.EstimatedMinutes < 0 {
		return nil, fmt.Errorf("%w: estimated delivery must not be negative", ErrInvalidInput)
	}
	return o, nil
}

// CalculateTotal sums the item prices
func CalculateTotal(items []Item) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price
	}
	return total
}

// validateItems rejects an empty list and malformed lines
func validateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: items[%d].name is required", ErrInvalidInput, i)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: items[%d].price must not be negative", ErrInvalidInput, i)
		}
	}
	return nil
}

// totalTolerance absorbs float rounding when a stored total is compared with
// a fresh sum of the same items
const totalTolerance = 1e-9

// Validate checks every rule the constructors enforce, so orders built by hand
// or decoded from storage are held to the same invariants
func (o *Order) Validate() error {
	if o.CustomerID <= 0 {
		return fmt.Errorf("%w: customer_id must be positive", ErrInvalidInput)
	}
	if err := validateItems(o.Items); err != nil {
		return err
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, o.Status)
	}
	if err := o.validateVariant(); err != nil {
		return err
	}
	if math.Abs(o.TotalPrice-CalculateTotal(o.Items)) > totalTolerance {
		return fmt.Errorf("%w: total_price %.2f does not match item sum %.2f",
			ErrInvalidInput, o.TotalPrice, CalculateTotal(o.Items))
	}
	return nil
}

// validateVariant checks that exactly the payload matching Kind is set
func (o *Order) validateVariant() error {
	switch o.Kind {
	case KindEatIn:
		if o.EatIn == nil || o.EatIn.TableNumber <= 0 {
			return fmt.Errorf("%w: eat-in order needs a positive table number", ErrInvalidInput)
		}
		if o.TakeAway != nil || o.Delivery != nil {
			return fmt.Errorf("%w: eat-in order carries another kind's details", ErrInvalidInput)
		}
	case KindTakeAway:
		if o.TakeAway == nil || o.TakeAway.PickupTime.IsZero() {
			return fmt.Errorf("%w: takeaway order needs a pickup time", ErrInvalidInput)
		}
		if o.EatIn != nil || o.Delivery != nil {
			return fmt.Errorf("%w: takeaway order carries another kind's details", ErrInvalidInput)
		}
	case KindDelivery:
		if o.Delivery == nil || strings.TrimSpace(o.Delivery.Address) == "" {
			return fmt.Errorf("%w: delivery order needs an address", ErrInvalidInput)
		}
		if o.Delivery.DriverID < 0 || o.Delivery.EstimatedMinutes < 0 {
			return fmt.Errorf("%w: driver and estimate must not be negative", ErrInvalidInput)
		}
		if o.EatIn != nil || o.TakeAway != nil {
			return fmt.Errorf("%w: delivery order carries another kind's details", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown order kind %q", ErrInvalidInput, o.Kind)
	}
	return nil
}

// DriverID returns the assigned driver, 0 when unassigned or not a delivery
func (o *Order) DriverID() int {
	if o.Delivery == nil {
		return 0
	}
	return o.Delivery.DriverID
}

// Clone returns a deep copy of o
func (o *Order) Clone() Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.EatIn != nil {
		d := *o.EatIn
		c.EatIn = &d
	}
	if o.TakeAway != nil {
		d := *o.TakeAway
		c.TakeAway = &d
	}
	if o.Delivery != nil {
		d := *o.Delivery
		c.Delivery = &d
	}
	return c
}

func (o *Order) String() string {
	return fmt.Sprintf("Order #%d (Customer: %d) - %s - %s - $%.2f",
		o.ID, o.CustomerID, o.Kind, o.Status, o.TotalPrice)
}
