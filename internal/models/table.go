package models

import (
	"fmt"
	"time"
)

// TableStatus represents the status of a physical table
type TableStatus string

const (
	TableAvailable   TableStatus = "AVAILABLE"
	TableReserved    TableStatus = "RESERVED"
	TableOccupied    TableStatus = "OCCUPIED"
	TableUnavailable TableStatus = "UNAVAILABLE"
)

// Valid reports whether s is a known table status
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableReserved, TableOccupied, TableUnavailable:
		return true
	}
	return false
}

// Hold is a reservation interval a table is committed to.
// It refers to the reservation by ID only.
type Hold struct {
	ReservationID int       `json:"reservation_id" db:"reservation_id"`
	Start         time.Time `json:"start" db:"start_time"`
	End           time.Time `json:"end" db:"end_time"`
}

// Table is a physical table in the cafe
type Table struct {
	Number   int         `json:"table_number" db:"number"`
	Capacity int         `json:"capacity" db:"capacity"`
	Status   TableStatus `json:"status" db:"status"`
	Holds    []Hold      `json:"holds"`
}

// NewTable creates an available table with no holds
func NewTable(number, capacity int) (*Table, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: table number must be positive, got %d", ErrInvalidInput, number)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: table capacity must be positive, got %d", ErrInvalidInput, capacity)
	}
	return &Table{
		Number:   number,
		Capacity: capacity,
		Status:   TableAvailable,
	}, nil
}

// Clone returns a copy that shares no slices with t
func (t *Table) Clone() Table {
	c := *t
	c.Holds = append([]Hold(nil), t.Holds...)
	return c
}

func (t *Table) String() string {
	return fmt.Sprintf("Table %d (%d seats) - %s", t.Number, t.Capacity, t.Status)
}
