package server

import (
	"fmt"
	"net/http"

	"cafe-system/internal/models"
)

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDuration
	}

	b, err := s.bookings.CreateBooking(req.CustomerID, req.StartTime, req.DurationMinutes, req.Guests)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, b)
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, ok := s.bookings.FindByID(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: booking %d", models.ErrNotFound, id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, b)
}

// listBookings filters by customer_id, or by a from/to start-time window
func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	customerID, byCustomer, err := queryInt(r, "customer_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if byCustomer {
		s.writeJSON(w, r, http.StatusOK, nonNil(s.bookings.ListByCustomer(customerID)))
		return
	}

	if r.URL.Query().Has("from") || r.URL.Query().Has("to") {
		from, err := queryTime(r, "from")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		to, err := queryTime(r, "to")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, nonNil(s.bookings.ListBetween(from, to)))
		return
	}

	s.writeJSON(w, r, http.StatusOK, nonNil(s.bookings.All()))
}

func (s *Server) assignTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AssignTableRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, ok := s.bookings.FindByID(id); !ok {
		s.writeError(w, r, fmt.Errorf("%w: booking %d", models.ErrNotFound, id))
		return
	}
	if _, ok := s.tables.Get(req.TableNumber); !ok {
		s.writeError(w, r, fmt.Errorf("%w: table %d", models.ErrNotFound, req.TableNumber))
		return
	}

	ok, err := s.bookings.AssignTable(id, req.TableNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeErrorResponse(w, r, http.StatusConflict,
			fmt.Sprintf("table %d is not available for booking %d", req.TableNumber, id))
		return
	}

	b, _ := s.bookings.FindByID(id)
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) approveBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := s.bookings.FindByID(id); !ok {
		s.writeError(w, r, fmt.Errorf("%w: booking %d", models.ErrNotFound, id))
		return
	}

	if !s.bookings.Approve(id) {
		s.writeErrorResponse(w, r, http.StatusConflict, "cannot approve a booking without tables")
		return
	}
	b, _ := s.bookings.FindByID(id)
	s.writeJSON(w, r, http.StatusOK, b)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.bookings.Cancel(id) {
		s.writeError(w, r, fmt.Errorf("%w: booking %d", models.ErrNotFound, id))
		return
	}
	b, _ := s.bookings.FindByID(id)
	s.writeJSON(w, r, http.StatusOK, b)
}

// nonNil keeps empty lists encoding as [] instead of null
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
