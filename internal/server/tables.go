package server

import (
	"fmt"
	"net/http"

	"cafe-system/internal/models"
)

// availableTables answers GET /tables/available?start=&duration=&guests=
func (s *Server) availableTables(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	duration, ok, err := queryInt(r, "duration")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		duration = s.defaultDuration
	}
	guests, ok, err := queryInt(r, "guests")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok || guests <= 0 || duration <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: guests and duration must be positive", models.ErrInvalidInput))
		return
	}

	s.writeJSON(w, r, http.StatusOK, nonNil(s.tables.FindAvailable(start, duration, guests)))
}

// listTables answers GET /tables, optionally filtered by min and max capacity
func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	minCap, hasMin, err := queryInt(r, "min")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	maxCap, hasMax, err := queryInt(r, "max")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !hasMin && !hasMax {
		s.writeJSON(w, r, http.StatusOK, s.tables.All())
		return
	}
	if !hasMax {
		maxCap = int(^uint(0) >> 1)
	}
	s.writeJSON(w, r, http.StatusOK, nonNil(s.tables.ByCapacity(minCap, maxCap)))
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt(r, "number")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, ok := s.tables.Get(number)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: table %d", models.ErrNotFound, number))
		return
	}

	// check=START&duration=N adds an availability answer for that interval
	if raw := r.URL.Query().Get("check"); raw != "" {
		start, err := queryTime(r, "check")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		duration, ok, err := queryInt(r, "duration")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !ok {
			duration = s.defaultDuration
		}
		s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
			"table":     t,
			"available": s.tables.CheckAvailability(number, start, duration),
		})
		return
	}

	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) setTableStatus(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt(r, "number")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req TableStatusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tables.SetStatus(number, req.Status); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, _ := s.tables.Get(number)
	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) releaseTable(w http.ResponseWriter, r *http.Request) {
	number, err := pathInt(r, "number")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := s.tables.Get(number); !ok {
		s.writeError(w, r, fmt.Errorf("%w: table %d", models.ErrNotFound, number))
		return
	}
	s.tables.Release(number)
	t, _ := s.tables.Get(number)
	s.writeJSON(w, r, http.StatusOK, t)
}
