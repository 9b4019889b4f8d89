package order

import (
	"fmt"
	"sort"
	"sync"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
	"cafe-system/internal/services/notification"
	"cafe-system/internal/timerange"
)

// Service is the order engine. It owns every placed order.
type Service struct {
	mu         sync.RWMutex
	orders     map[int]*models.Order
	log        []int
	byCustomer map[int][]int
	nextID     int

	notifier notification.Notifier
	clock    timerange.Clock
	logger   *logger.Logger
}

// NewService creates an empty order engine
func NewService(notifier notification.Notifier, clock timerange.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = timerange.SystemClock{}
	}
	return &Service{
		orders:     make(map[int]*models.Order),
		byCustomer: make(map[int][]int),
		nextID:     1,
		notifier:   notifier,
		clock:      clock,
		logger:     log,
	}
}

// Place assigns the next order ID and stores the order. The engine keeps its
// own copy; the price computed at construction is kept as is.
func (s *Service) Place(o *models.Order) (models.Order, error) {
	if o == nil {
		return models.Order{}, fmt.Errorf("%w: order cannot be nil", models.ErrInvalidInput)
	}
	if o.ID != 0 {
		return models.Order{}, fmt.Errorf("%w: order already placed with id %d", models.ErrInvalidInput, o.ID)
	}
	if err := o.Validate(); err != nil {
		s.logger.Debug("order_rejected", "Order failed validation", "", map[string]interface{}{
			"customer_id": o.CustomerID,
			"reason":      err.Error(),
		})
		return models.Order{}, err
	}

	stored := o.Clone()

	s.mu.Lock()
	stored.ID = s.nextID
	s.nextID++
	s.insertLocked(&stored)
	placed := stored.Clone()
	s.mu.Unlock()

	s.logger.Info("order_placed", fmt.Sprintf("Placed new order ID: %d", placed.ID), "", map[string]interface{}{
		"order_id":    placed.ID,
		"customer_id": placed.CustomerID,
		"kind":        placed.Kind,
		"total_price": placed.TotalPrice,
	})
	s.notify(placed.CustomerID, fmt.Sprintf("Your order #%d has been placed. Total: $%.2f", placed.ID, placed.TotalPrice))
	return placed, nil
}

// UpdateStatus overwrites the status without any lifecycle check.
// It returns false when the order does not exist.
func (s *Service) UpdateStatus(orderID int, status models.OrderStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}

	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	from := o.Status
	s.setStatusLocked(o, status)
	customerID := o.CustomerID
	s.mu.Unlock()

	s.statusChanged(orderID, customerID, from, status)
	return true, nil
}

// ProcessOrder runs the kind-specific processing step:
// eat-in orders go IN_PROGRESS, takeaway orders are COMPLETED at once and
// delivery orders go IN_PROGRESS once a driver is assigned.
func (s *Service) ProcessOrder(orderID int) (bool, error) {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}

	var next models.OrderStatus
	switch o.Kind {
	case models.KindEatIn:
		next = models.StatusInProgress
	case models.KindTakeAway:
		next = models.StatusCompleted
	case models.KindDelivery:
		if o.DriverID() <= 0 {
			s.mu.Unlock()
			return false, fmt.Errorf("%w: no driver assigned", models.ErrPreconditionFailed)
		}
		next = models.StatusInProgress
	default:
		s.mu.Unlock()
		return false, fmt.Errorf("%w: unknown order kind %q", models.ErrInvalidInput, o.Kind)
	}

	from := o.Status
	s.setStatusLocked(o, next)
	customerID := o.CustomerID
	s.mu.Unlock()

	s.logger.Debug("order_processed", fmt.Sprintf("Processed %s order %d", o.Kind, orderID), "", map[string]interface{}{
		"order_id": orderID,
		"status":   next,
	})
	s.statusChanged(orderID, customerID, from, next)
	return true, nil
}

// AssignDriver sets the driver of a delivery order, overwriting any previous one
func (s *Service) AssignDriver(orderID, driverID int) (bool, error) {
	if driverID <= 0 {
		return false, fmt.Errorf("%w: driver_id must be positive", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	if o.Kind != models.KindDelivery || o.Delivery == nil {
		return false, fmt.Errorf("%w: order %d is not a delivery order", models.ErrInvalidInput, orderID)
	}

	o.Delivery.DriverID = driverID
	o.UpdatedAt = s.clock.Now()

	s.logger.Debug("driver_assigned", fmt.Sprintf("Driver %d assigned to order %d", driverID, orderID), "", map[string]interface{}{
		"order_id":  orderID,
		"driver_id": driverID,
	})
	return true, nil
}

// FindByID returns a snapshot of one order
func (s *Service) FindByID(orderID int) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return o.Clone(), true
}

// TrackStatus returns the current status of an order
func (s *Service) TrackStatus(orderID int) (models.OrderStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return "", false
	}
	return o.Status, true
}

// ListByCustomer returns the customer's orders in placement order
func (s *Service) ListByCustomer(customerID int) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCustomer[customerID]
	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.orders[id].Clone())
	}
	return out
}

// ListByStatus returns orders currently in status
func (s *Service) ListByStatus(status models.OrderStatus) []models.Order {
	return s.filter(func(o *models.Order) bool { return o.Status == status })
}

// Outstanding returns orders that are neither completed nor cancelled
func (s *Service) Outstanding() []models.Order {
	return s.filter(func(o *models.Order) bool { return !o.Status.Terminal() })
}

// All returns every order in placement order
func (s *Service) All() []models.Order {
	return s.filter(func(*models.Order) bool { return true })
}

// Restore loads orders from a persisted snapshot into an empty engine and
// seeds the ID counter past the highest loaded ID
func (s *Service) Restore(orders []models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.log) > 0 {
		return fmt.Errorf("%w: restore into a non-empty engine", models.ErrPreconditionFailed)
	}

	sorted := make([]models.Order, 0, len(orders))
	for i := range orders {
		sorted = append(sorted, orders[i].Clone())
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[int]bool, len(sorted))
	for i := range sorted {
		o := &sorted[i]
		if o.ID <= 0 || seen[o.ID] {
			return fmt.Errorf("%w: invalid or duplicate order id %d", models.ErrInvalidInput, o.ID)
		}
		if err := o.Validate(); err != nil {
			return fmt.Errorf("order %d: %w", o.ID, err)
		}
		seen[o.ID] = true
	}

	maxID := 0
	for i := range sorted {
		o := sorted[i]
		s.insertLocked(&o)
		if o.ID > maxID {
			maxID = o.ID
		}
	}
	s.nextID = maxID + 1

	s.logger.Info("orders_restored", fmt.Sprintf("Restored %d orders", len(sorted)), "", map[string]interface{}{
		"next_id": s.nextID,
	})
	return nil
}

func (s *Service) filter(keep func(*models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Order
	for _, id := range s.log {
		if o := s.orders[id]; keep(o) {
			out = append(out, o.Clone())
		}
	}
	return out
}

func (s *Service) insertLocked(o *models.Order) {
	s.orders[o.ID] = o
	s.log = append(s.log, o.ID)
	s.byCustomer[o.CustomerID] = append(s.byCustomer[o.CustomerID], o.ID)
}

// setStatusLocked changes status and bumps the update time when it differs
func (s *Service) setStatusLocked(o *models.Order, status models.OrderStatus) {
	if o.Status == status {
		return
	}
	o.Status = status
	o.UpdatedAt = s.clock.Now()
}

func (s *Service) statusChanged(orderID, customerID int, from, to models.OrderStatus) {
	if from == to {
		return
	}
	s.logger.Debug("order_status_changed", fmt.Sprintf("Order %d: Status changing from %s to %s", orderID, from, to), "", map[string]interface{}{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	})
	s.notify(customerID, fmt.Sprintf("Your order #%d is now %s", orderID, to))
}

func (s *Service) notify(customerID int, message string) {
	if s.notifier != nil {
		s.notifier.NotifyCustomer(customerID, message)
	}
}
