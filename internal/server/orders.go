package server

import (
	"fmt"
	"net/http"

	"cafe-system/internal/models"
)

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	o, err := req.toOrder(s.clock.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	placed, err := s.orders.Place(o)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Debug("order_created", "Order created successfully", requestID(r), map[string]interface{}{
		"order_id":    placed.ID,
		"total_price": placed.TotalPrice,
	})
	s.writeJSON(w, r, http.StatusCreated, placed)
}

// listOrders filters by customer_id, status, or outstanding=true
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	customerID, byCustomer, err := queryInt(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch {
	case byCustomer:
		s.writeJSON(w, r, http.StatusOK, nonNil(s.orders.ListByCustomer(customerID)))
	case q.Get("status") != "":
		status := models.OrderStatus(q.Get("status"))
		if !status.Valid() {
			s.writeError(w, r, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status))
			return
		}
		s.writeJSON(w, r, http.StatusOK, nonNil(s.orders.ListByStatus(status)))
	case q.Get("outstanding") == "true":
		s.writeJSON(w, r, http.StatusOK, nonNil(s.orders.Outstanding()))
	default:
		s.writeJSON(w, r, http.StatusOK, nonNil(s.orders.All()))
	}
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, ok := s.orders.FindByID(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: order %d", models.ErrNotFound, id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, o)
}

func (s *Server) trackOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status, ok := s.orders.TrackStatus(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: order %d", models.ErrNotFound, id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, StatusResponse{OrderID: id, Status: status})
}

func (s *Server) processOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.orders.ProcessOrder(id)
	s.respondOrder(w, r, id, ok, err)
}

func (s *Server) assignDriver(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AssignDriverRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.orders.AssignDriver(id, req.DriverID)
	s.respondOrder(w, r, id, ok, err)
}

// updateOrderStatus overwrites the status without lifecycle checks
func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req OrderStatusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.orders.UpdateStatus(id, req.Status)
	s.respondOrder(w, r, id, ok, err)
}

// transitionOrder moves an order along the confirmation-flow lifecycle
func (s *Server) transitionOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req OrderStatusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err = s.orders.Transition(id, req.Status)
	s.respondOrder(w, r, id, err == nil, err)
}

// orderStep serves one named lifecycle step, e.g. POST /orders/{id}/handover
func (s *Server) orderStep(step func(orderID int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathInt(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		err = step(id)
		s.respondOrder(w, r, id, err == nil, err)
	}
}

func (s *Server) respondOrder(w http.ResponseWriter, r *http.Request, id int, ok bool, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: order %d", models.ErrNotFound, id))
		return
	}
	o, _ := s.orders.FindByID(id)
	s.writeJSON(w, r, http.StatusOK, o)
}
