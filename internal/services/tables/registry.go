package tables

import (
	"fmt"
	"sync"
	"time"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
	"cafe-system/internal/timerange"
)

// Registry owns the fixed table inventory and every table's status and holds
type Registry struct {
	mu       sync.RWMutex
	tables   []*models.Table
	byNumber map[int]*models.Table
	clock    timerange.Clock
	logger   *logger.Logger
}

// DefaultInventory is the cafe floor: four 2-seaters, four 4-seaters,
// two 8-seaters and one 10-seater, numbered 1..11
func DefaultInventory() []models.Table {
	var inventory []models.Table
	add := func(from, to, capacity int) {
		for n := from; n <= to; n++ {
			inventory = append(inventory, models.Table{Number: n, Capacity: capacity, Status: models.TableAvailable})
		}
	}
	add(1, 4, 2)
	add(5, 8, 4)
	add(9, 10, 8)
	add(11, 11, 10)
	return inventory
}

// NewRegistry creates a registry from an inventory, preserving its order
func NewRegistry(inventory []models.Table, clock timerange.Clock, log *logger.Logger) (*Registry, error) {
	if clock == nil {
		clock = timerange.SystemClock{}
	}
	r := &Registry{
		byNumber: make(map[int]*models.Table, len(inventory)),
		clock:    clock,
		logger:   log,
	}

	for _, entry := range inventory {
		t, err := models.NewTable(entry.Number, entry.Capacity)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byNumber[t.Number]; dup {
			return nil, fmt.Errorf("%w: duplicate table number %d", models.ErrInvalidInput, t.Number)
		}
		if entry.Status != "" {
			if !entry.Status.Valid() {
				return nil, fmt.Errorf("%w: unknown table status %q", models.ErrInvalidInput, entry.Status)
			}
			t.Status = entry.Status
		}
		t.Holds = append([]models.Hold(nil), entry.Holds...)

		r.tables = append(r.tables, t)
		r.byNumber[t.Number] = t
	}

	return r, nil
}

// FindAvailable returns, in inventory order, every available table that seats
// guestCount and is free for the requested interval
func (r *Registry) FindAvailable(start time.Time, durationMinutes, guestCount int) []models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	end := timerange.End(start, durationMinutes)
	var available []models.Table
	for _, t := range r.tables {
		if t.Capacity >= guestCount && isFree(t, start, end) {
			available = append(available, t.Clone())
		}
	}
	return available
}

// CheckAvailability reports whether the table is AVAILABLE and none of its
// holds overlaps the requested interval. Unknown tables are never available.
func (r *Registry) CheckAvailability(number int, start time.Time, durationMinutes int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byNumber[number]
	if !ok {
		return false
	}
	return isFree(t, start, timerange.End(start, durationMinutes))
}

// Assign re-checks availability and commits the hold to the table.
// On failure nothing is changed.
func (r *Registry) Assign(number int, hold models.Hold) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byNumber[number]
	if !ok {
		return false
	}
	if !isFree(t, hold.Start, hold.End) {
		r.logger.Debug("table_assign_rejected", fmt.Sprintf("Table %d not available", number), "", map[string]interface{}{
			"table_number":   number,
			"reservation_id": hold.ReservationID,
			"status":         t.Status,
		})
		return false
	}

	t.Holds = append(t.Holds, hold)
	t.Status = models.TableReserved

	r.logger.Debug("table_assigned", fmt.Sprintf("Table %d reserved", number), "", map[string]interface{}{
		"table_number":   number,
		"reservation_id": hold.ReservationID,
	})
	return true
}

// Release makes the table AVAILABLE and purges holds that have already ended.
// Holds that have not ended yet are kept.
func (r *Registry) Release(number int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byNumber[number]; ok {
		r.releaseLocked(t)
	}
}

// ReleaseFor drops the hold owned by reservationID and then releases the table
func (r *Registry) ReleaseFor(number, reservationID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byNumber[number]
	if !ok {
		return
	}

	kept := t.Holds[:0]
	for _, h := range t.Holds {
		if h.ReservationID != reservationID {
			kept = append(kept, h)
		}
	}
	t.Holds = kept
	r.releaseLocked(t)
}

func (r *Registry) releaseLocked(t *models.Table) {
	now := r.clock.Now()
	kept := t.Holds[:0]
	for _, h := range t.Holds {
		if !h.End.Before(now) {
			kept = append(kept, h)
		}
	}
	t.Holds = kept
	t.Status = models.TableAvailable

	r.logger.Debug("table_released", fmt.Sprintf("Table %d released", t.Number), "", map[string]interface{}{
		"table_number":    t.Number,
		"remaining_holds": len(t.Holds),
	})
}

// SetStatus forces a table status, e.g. OCCUPIED when guests sit down or
// UNAVAILABLE when a table is taken out of service
func (r *Registry) SetStatus(number int, status models.TableStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown table status %q", models.ErrInvalidInput, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byNumber[number]
	if !ok {
		return fmt.Errorf("%w: table %d", models.ErrNotFound, number)
	}
	t.Status = status
	return nil
}

// Get returns a snapshot of one table
func (r *Registry) Get(number int) (models.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byNumber[number]
	if !ok {
		return models.Table{}, false
	}
	return t.Clone(), true
}

// All returns snapshots of every table in inventory order
func (r *Registry) All() []models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Table, 0, len(r.tables))
	for _, t := range r.tables {
		all = append(all, t.Clone())
	}
	return all
}

// ByCapacity returns tables seating between min and max guests inclusive
func (r *Registry) ByCapacity(min, max int) []models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Table
	for _, t := range r.tables {
		if t.Capacity >= min && t.Capacity <= max {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Restore replaces status and holds of known tables from a snapshot.
// Capacities come from the inventory and are not overwritten.
func (r *Registry) Restore(snapshot []models.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range snapshot {
		if !s.Status.Valid() {
			return fmt.Errorf("%w: table %d has unknown status %q", models.ErrInvalidInput, s.Number, s.Status)
		}
	}
	for _, s := range snapshot {
		t, ok := r.byNumber[s.Number]
		if !ok {
			continue
		}
		t.Status = s.Status
		t.Holds = append([]models.Hold(nil), s.Holds...)
	}
	return nil
}

// RebuildHolds replaces every table's holds with the given ones, keyed by
// table number, dropping holds that have already ended. A table that gains a
// hold it did not have is marked RESERVED, as Assign would have done, and a
// RESERVED table left without holds becomes AVAILABLE. It returns the numbers
// of the tables whose holds or status changed.
func (r *Registry) RebuildHolds(holds map[int][]models.Hold) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var changed []int
	for _, t := range r.tables {
		had := make(map[int]bool, len(t.Holds))
		for _, h := range t.Holds {
			had[h.ReservationID] = true
		}

		var want []models.Hold
		gained := false
		for _, h := range holds[t.Number] {
			if h.End.Before(now) {
				continue
			}
			want = append(want, h)
			if !had[h.ReservationID] {
				gained = true
			}
		}

		status := t.Status
		switch {
		case gained && status == models.TableAvailable:
			status = models.TableReserved
		case len(want) == 0 && status == models.TableReserved:
			status = models.TableAvailable
		}
		if !gained && len(want) == len(t.Holds) && status == t.Status {
			continue
		}

		t.Holds = want
		t.Status = status
		changed = append(changed, t.Number)
	}

	if len(changed) > 0 {
		r.logger.Info("table_holds_rebuilt", fmt.Sprintf("Rebuilt holds of %d tables", len(changed)), "", map[string]interface{}{
			"tables": changed,
		})
	}
	return changed
}

// isFree is the overlap and status test, called with the lock held
func isFree(t *models.Table, start, end time.Time) bool {
	for _, h := range t.Holds {
		if timerange.Overlaps(start, end, h.Start, h.End) {
			return false
		}
	}
	return t.Status == models.TableAvailable
}
