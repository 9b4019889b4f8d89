package booking

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
	"cafe-system/internal/services/notification"
	"cafe-system/internal/timerange"
)

// TableRegistry is what the engine needs from the table registry
type TableRegistry interface {
	Get(number int) (models.Table, bool)
	Assign(number int, hold models.Hold) bool
	ReleaseFor(number, reservationID int)
	All() []models.Table
	RebuildHolds(holds map[int][]models.Hold) []int
}

// Service is the reservation engine. It owns every booking; tables are
// referenced by number and mutated only through the registry.
type Service struct {
	mu         sync.RWMutex
	bookings   map[int]*models.Booking
	log        []int
	byCustomer map[int][]int
	nextID     int

	tables   TableRegistry
	notifier notification.Notifier
	clock    timerange.Clock
	logger   *logger.Logger
}

// NewService creates an empty reservation engine
func NewService(tables TableRegistry, notifier notification.Notifier, clock timerange.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = timerange.SystemClock{}
	}
	return &Service{
		bookings:   make(map[int]*models.Booking),
		byCustomer: make(map[int][]int),
		nextID:     1,
		tables:     tables,
		notifier:   notifier,
		clock:      clock,
		logger:     log,
	}
}

// CreateBooking validates the request and stores a PENDING booking with no tables
func (s *Service) CreateBooking(customerID int, startTime time.Time, durationMinutes, guests int) (models.Booking, error) {
	now := s.clock.Now()

	if customerID <= 0 {
		return models.Booking{}, fmt.Errorf("%w: customer_id must be positive", models.ErrInvalidInput)
	}
	if guests <= 0 {
		return models.Booking{}, fmt.Errorf("%w: number of guests must be positive", models.ErrInvalidInput)
	}
	if durationMinutes <= 0 {
		return models.Booking{}, fmt.Errorf("%w: duration must be positive", models.ErrInvalidInput)
	}
	if startTime.Before(now) {
		return models.Booking{}, fmt.Errorf("%w: booking time cannot be in the past", models.ErrInvalidInput)
	}

	s.mu.Lock()
	b := &models.Booking{
		ID:              s.nextID,
		CustomerID:      customerID,
		StartTime:       startTime,
		DurationMinutes: durationMinutes,
		Guests:          guests,
		Status:          models.ReservationPending,
		CreatedAt:       now,
	}
	s.nextID++
	s.insertLocked(b)
	snapshot := b.Clone()
	s.mu.Unlock()

	s.logger.Debug("booking_created", fmt.Sprintf("Booking %d created", b.ID), "", map[string]interface{}{
		"booking_id":  snapshot.ID,
		"customer_id": customerID,
		"guests":      guests,
		"start_time":  startTime.Format(time.RFC3339),
	})
	return snapshot, nil
}

// AssignTable commits a table to a booking. It returns false when the booking
// or table does not exist or the table is not free for the booking's interval,
// and ErrCapacityExceeded when the table seats fewer than the party.
func (s *Service) AssignTable(bookingID, tableNumber int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return false, nil
	}
	table, ok := s.tables.Get(tableNumber)
	if !ok {
		return false, nil
	}
	if b.Status == models.ReservationCancelled {
		return false, fmt.Errorf("%w: booking %d is cancelled", models.ErrPreconditionFailed, bookingID)
	}
	if table.Capacity < b.Guests {
		return false, fmt.Errorf("%w: table %d (%d seats) too small for %d guests",
			models.ErrCapacityExceeded, table.Number, table.Capacity, b.Guests)
	}
	if b.HasTable(tableNumber) {
		return false, nil
	}

	hold := models.Hold{ReservationID: b.ID, Start: b.StartTime, End: b.EndTime()}
	if !s.tables.Assign(tableNumber, hold) {
		s.logger.Debug("table_assign_rejected", fmt.Sprintf("Table %d unavailable for booking %d", tableNumber, bookingID), "", map[string]interface{}{
			"booking_id":   bookingID,
			"table_number": tableNumber,
		})
		return false, nil
	}

	b.TableNumbers = append(b.TableNumbers, tableNumber)
	s.logger.Debug("table_assigned", fmt.Sprintf("Table %d assigned to booking %d", tableNumber, bookingID), "", map[string]interface{}{
		"booking_id":   bookingID,
		"table_number": tableNumber,
	})
	return true, nil
}

// Approve moves a booking to APPROVED. A booking without tables is never approved.
func (s *Service) Approve(bookingID int) bool {
	s.mu.Lock()
	b, ok := s.bookings[bookingID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if len(b.TableNumbers) == 0 {
		s.mu.Unlock()
		s.logger.Debug("booking_approve_rejected", "Cannot approve - no tables assigned", "", map[string]interface{}{
			"booking_id": bookingID,
		})
		return false
	}
	if b.Status == models.ReservationApproved {
		s.mu.Unlock()
		return true
	}
	b.Status = models.ReservationApproved
	customerID := b.CustomerID
	s.mu.Unlock()

	s.logger.Debug("booking_approved", fmt.Sprintf("Booking %d approved", bookingID), "", map[string]interface{}{
		"booking_id": bookingID,
	})
	s.notify(customerID, "Booking confirmed!")
	return true
}

// Cancel releases every table of the booking, clears its table set and
// marks it CANCELLED. Cancelling again changes nothing.
func (s *Service) Cancel(bookingID int) bool {
	s.mu.Lock()
	b, ok := s.bookings[bookingID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if b.Status == models.ReservationCancelled && len(b.TableNumbers) == 0 {
		s.mu.Unlock()
		return true
	}

	for _, n := range b.TableNumbers {
		s.tables.ReleaseFor(n, b.ID)
	}
	released := len(b.TableNumbers)
	b.TableNumbers = nil
	b.Status = models.ReservationCancelled
	customerID := b.CustomerID
	s.mu.Unlock()

	s.logger.Debug("booking_cancelled", fmt.Sprintf("Booking %d cancelled", bookingID), "", map[string]interface{}{
		"booking_id":      bookingID,
		"tables_released": released,
	})
	s.notify(customerID, fmt.Sprintf("Your booking (ID: %d) has been cancelled", bookingID))
	return true
}

// FindByID returns a snapshot of one booking
func (s *Service) FindByID(bookingID int) (models.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return models.Booking{}, false
	}
	return b.Clone(), true
}

// ListByCustomer returns the customer's bookings in creation order
func (s *Service) ListByCustomer(customerID int) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byCustomer[customerID]
	out := make([]models.Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.bookings[id].Clone())
	}
	return out
}

// ListBetween returns bookings whose start time lies in [start, end].
// Only the start time is compared.
func (s *Service) ListBetween(start, end time.Time) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Booking
	for _, id := range s.log {
		b := s.bookings[id]
		if !b.StartTime.Before(start) && !b.StartTime.After(end) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// All returns every booking in creation order
func (s *Service) All() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, 0, len(s.log))
	for _, id := range s.log {
		out = append(out, s.bookings[id].Clone())
	}
	return out
}

// Snapshot returns every booking together with the table states they were
// assigned against. The registry is read while the engine lock is held, so no
// assignment or cancellation falls between the two reads.
func (s *Service) Snapshot() ([]models.Booking, []models.Table) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, 0, len(s.log))
	for _, id := range s.log {
		out = append(out, s.bookings[id].Clone())
	}
	return out, s.tables.All()
}

// Restore loads bookings from a persisted snapshot into an empty engine and
// seeds the ID counter past the highest loaded ID. The registry's holds are
// then rebuilt from the restored bookings, which are the source of truth for
// which table is committed to which interval.
func (s *Service) Restore(bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.log) > 0 {
		return fmt.Errorf("%w: restore into a non-empty engine", models.ErrPreconditionFailed)
	}

	sorted := append([]models.Booking(nil), bookings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[int]bool, len(sorted))
	for _, b := range sorted {
		if b.ID <= 0 || seen[b.ID] {
			return fmt.Errorf("%w: invalid or duplicate booking id %d", models.ErrInvalidInput, b.ID)
		}
		seen[b.ID] = true
	}

	maxID := 0
	for i := range sorted {
		b := sorted[i].Clone()
		s.insertLocked(&b)
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	s.nextID = maxID + 1

	corrected := s.tables.RebuildHolds(s.holdsLocked())

	s.logger.Info("bookings_restored", fmt.Sprintf("Restored %d bookings", len(sorted)), "", map[string]interface{}{
		"next_id":           s.nextID,
		"tables_reconciled": len(corrected),
	})
	return nil
}

// holdsLocked lists the hold every live booking places on each of its tables
func (s *Service) holdsLocked() map[int][]models.Hold {
	holds := make(map[int][]models.Hold)
	for _, id := range s.log {
		b := s.bookings[id]
		if b.Status == models.ReservationCancelled {
			continue
		}
		for _, n := range b.TableNumbers {
			holds[n] = append(holds[n], models.Hold{ReservationID: b.ID, Start: b.StartTime, End: b.EndTime()})
		}
	}
	return holds
}

func (s *Service) insertLocked(b *models.Booking) {
	s.bookings[b.ID] = b
	s.log = append(s.log, b.ID)
	s.byCustomer[b.CustomerID] = append(s.byCustomer[b.CustomerID], b.ID)
}

func (s *Service) notify(customerID int, message string) {
	if s.notifier != nil {
		s.notifier.NotifyCustomer(customerID, message)
	}
}
