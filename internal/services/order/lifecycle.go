package order

import (
	"fmt"

	"cafe-system/internal/models"
)

// allowed is the confirmation-flow lifecycle. Fulfilment statuses are
// further restricted per order kind by fulfilment.
var allowed = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.StatusPendingConfirmation: {models.StatusConfirmed: true, models.StatusCancelled: true},
	models.StatusConfirmed:           {models.StatusPreparing: true, models.StatusCancelled: true},
	models.StatusPreparing:           {models.StatusReady: true},
	models.StatusReady: {
		models.StatusServed:    true,
		models.StatusCollected: true,
		models.StatusDelivered: true,
		models.StatusCompleted: true,
	},
	models.StatusServed:    {models.StatusCompleted: true},
	models.StatusCollected: {models.StatusCompleted: true},
	models.StatusDelivered: {models.StatusCompleted: true},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// fulfilment is the only hand-over status each kind may use
var fulfilment = map[models.OrderKind]models.OrderStatus{
	models.KindEatIn:    models.StatusServed,
	models.KindTakeAway: models.StatusCollected,
	models.KindDelivery: models.StatusDelivered,
}

func isFulfilment(s models.OrderStatus) bool {
	return s == models.StatusServed || s == models.StatusCollected || s == models.StatusDelivered
}

// CheckTransition validates moving o to status to. It returns noop=true when
// o is already in the terminal status to, which is not an error.
func CheckTransition(o *models.Order, to models.OrderStatus) (noop bool, err error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, to)
	}
	if o.Status == to && to.Terminal() {
		return true, nil
	}
	if !allowed[o.Status][to] {
		return false, fmt.Errorf("%w: order %d cannot move from %s to %s",
			models.ErrIllegalTransition, o.ID, o.Status, to)
	}
	if isFulfilment(to) && fulfilment[o.Kind] != to {
		return false, fmt.Errorf("%w: %s orders cannot be %s",
			models.ErrIllegalTransition, o.Kind, to)
	}
	if to == models.StatusDelivered && o.DriverID() <= 0 {
		return false, fmt.Errorf("%w: no driver assigned", models.ErrPreconditionFailed)
	}
	return false, nil
}

// Transition moves an order along the confirmation-flow lifecycle
func (s *Service) Transition(orderID int, to models.OrderStatus) error {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}

	from := o.Status
	noop, err := CheckTransition(o, to)
	if err != nil || noop {
		s.mu.Unlock()
		if err != nil {
			s.logger.Debug("order_transition_rejected", err.Error(), "", map[string]interface{}{
				"order_id": orderID,
				"from":     from,
				"to":       to,
			})
		}
		return err
	}

	s.setStatusLocked(o, to)
	customerID := o.CustomerID
	s.mu.Unlock()

	s.statusChanged(orderID, customerID, from, to)
	return nil
}

// Confirm accepts an order waiting for confirmation
func (s *Service) Confirm(orderID int) error {
	return s.Transition(orderID, models.StatusConfirmed)
}

// StartPreparation hands a confirmed order to the kitchen
func (s *Service) StartPreparation(orderID int) error {
	return s.Transition(orderID, models.StatusPreparing)
}

// MarkReady marks a prepared order as ready
func (s *Service) MarkReady(orderID int) error {
	return s.Transition(orderID, models.StatusReady)
}

// HandOver moves a ready order to its kind's fulfilment status:
// SERVED, COLLECTED or DELIVERED
func (s *Service) HandOver(orderID int) error {
	s.mu.RLock()
	o, ok := s.orders[orderID]
	var kind models.OrderKind
	if ok {
		kind = o.Kind
	}
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: order %d", models.ErrNotFound, orderID)
	}
	return s.Transition(orderID, fulfilment[kind])
}

// Complete closes an order; completing a completed order is a no-op
func (s *Service) Complete(orderID int) error {
	return s.Transition(orderID, models.StatusCompleted)
}

// Cancel cancels an order before preparation; cancelling twice is a no-op
func (s *Service) Cancel(orderID int) error {
	return s.Transition(orderID, models.StatusCancelled)
}
