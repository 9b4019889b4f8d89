package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
)

// Snapshot is the full persisted state of the cafe
type Snapshot struct {
	Tables   []models.Table
	Bookings []models.Booking
	Orders   []models.Order
}

// Empty reports whether nothing has been persisted yet
func (s Snapshot) Empty() bool {
	return len(s.Tables) == 0 && len(s.Bookings) == 0 && len(s.Orders) == 0
}

// Store saves and loads engine snapshots
type Store struct {
	db     *DB
	logger *logger.Logger
}

// NewStore creates a snapshot store on db
func NewStore(db *DB, log *logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Save writes the snapshot in one transaction. Rows are upserted; tables no
// longer in the inventory are removed.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	batch, err := buildSaveBatch(snap)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to save snapshot row %d: %w", i, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return err
	}

	s.logger.Debug("snapshot_saved", "Saved cafe snapshot", "", map[string]interface{}{
		"tables":      len(snap.Tables),
		"bookings":    len(snap.Bookings),
		"orders":      len(snap.Orders),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Load reads the last saved snapshot
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Tables, err = s.loadTables(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Bookings, err = s.loadBookings(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Orders, err = s.loadOrders(ctx); err != nil {
		return Snapshot{}, err
	}

	s.logger.Info("snapshot_loaded", "Loaded cafe snapshot", "startup", map[string]interface{}{
		"tables":   len(snap.Tables),
		"bookings": len(snap.Bookings),
		"orders":   len(snap.Orders),
	})
	return snap, nil
}

func buildSaveBatch(snap Snapshot) (*pgx.Batch, error) {
	batch := &pgx.Batch{}

	numbers := make([]int, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		holds, err := json.Marshal(nonNilHolds(t.Holds))
		if err != nil {
			return nil, fmt.Errorf("failed to encode holds of table %d: %w", t.Number, err)
		}
		batch.Queue(UpsertTableSQL, t.Number, t.Capacity, string(t.Status), string(holds))
		numbers = append(numbers, t.Number)
	}
	if len(snap.Tables) > 0 {
		batch.Queue(DeleteRetiredTablesSQL, numbers)
	}

	for _, b := range snap.Bookings {
		batch.Queue(UpsertBookingSQL, b.ID, b.CustomerID, b.StartTime, b.DurationMinutes, b.Guests,
			string(b.Status), append([]int{}, b.TableNumbers...), b.CreatedAt)
	}

	for i := range snap.Orders {
		row, err := encodeOrder(&snap.Orders[i])
		if err != nil {
			return nil, err
		}
		batch.Queue(UpsertOrderSQL, row.ID, row.CustomerID, row.Kind, row.Status, row.Items, row.Details,
			row.TotalPrice, row.OrderedAt, row.UpdatedAt)
	}

	return batch, nil
}

func (s *Store) loadTables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.db.Query(ctx, GetAllTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var t models.Table
		var status string
		var holds []byte
		if err := rows.Scan(&t.Number, &t.Capacity, &status, &holds); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		t.Status = models.TableStatus(status)
		if err := json.Unmarshal(holds, &t.Holds); err != nil {
			return nil, fmt.Errorf("failed to decode holds of table %d: %w", t.Number, err)
		}
		if len(t.Holds) == 0 {
			t.Holds = nil
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Store) loadBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.db.Query(ctx, GetAllBookingsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.StartTime, &b.DurationMinutes, &b.Guests,
			&status, &b.TableNumbers, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Status = models.ReservationStatus(status)
		if len(b.TableNumbers) == 0 {
			b.TableNumbers = nil
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *Store) loadOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.Query(ctx, GetAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.ID, &row.CustomerID, &row.Kind, &row.Status, &row.Items, &row.Details,
			&row.TotalPrice, &row.OrderedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o, err := decodeOrder(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// orderRow is the column layout of the orders table. The kind-specific
// payload lives in the details JSONB column.
type orderRow struct {
	ID         int
	CustomerID int
	Kind       string
	Status     string
	Items      []byte
	Details    []byte
	TotalPrice float64
	OrderedAt  time.Time
	UpdatedAt  time.Time
}

func encodeOrder(o *models.Order) (orderRow, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return orderRow{}, fmt.Errorf("failed to encode items of order %d: %w", o.ID, err)
	}

	var payload interface{}
	switch o.Kind {
	case models.KindEatIn:
		payload = o.EatIn
	case models.KindTakeAway:
		payload = o.TakeAway
	case models.KindDelivery:
		payload = o.Delivery
	default:
		return orderRow{}, fmt.Errorf("%w: order %d has unknown kind %q", models.ErrInvalidInput, o.ID, o.Kind)
	}
	details, err := json.Marshal(payload)
	if err != nil {
		return orderRow{}, fmt.Errorf("failed to encode details of order %d: %w", o.ID, err)
	}

	return orderRow{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Kind:       string(o.Kind),
		Status:     string(o.Status),
		Items:      items,
		Details:    details,
		TotalPrice: o.TotalPrice,
		OrderedAt:  o.OrderedAt,
		UpdatedAt:  o.UpdatedAt,
	}, nil
}

func decodeOrder(row orderRow) (models.Order, error) {
	o := models.Order{
		ID:         row.ID,
		CustomerID: row.CustomerID,
		Kind:       models.OrderKind(row.Kind),
		Status:     models.OrderStatus(row.Status),
		TotalPrice: row.TotalPrice,
		OrderedAt:  row.OrderedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Items, &o.Items); err != nil {
		return models.Order{}, fmt.Errorf("failed to decode items of order %d: %w", row.ID, err)
	}

	var target interface{}
	switch o.Kind {
	case models.KindEatIn:
		o.EatIn = &models.EatInDetails{}
		target = o.EatIn
	case models.KindTakeAway:
		o.TakeAway = &models.TakeAwayDetails{}
		target = o.TakeAway
	case models.KindDelivery:
		o.Delivery = &models.DeliveryDetails{}
		target = o.Delivery
	default:
		return models.Order{}, fmt.Errorf("%w: order %d has unknown kind %q", models.ErrInvalidInput, row.ID, row.Kind)
	}
	if err := json.Unmarshal(row.Details, target); err != nil {
		return models.Order{}, fmt.Errorf("failed to decode details of order %d: %w", row.ID, err)
	}
	return o, nil
}

func nonNilHolds(h []models.Hold) []models.Hold {
	if h == nil {
		return []models.Hold{}
	}
	return h
}
