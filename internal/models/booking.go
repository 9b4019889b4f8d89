package models

import (
	"time"

	"cafe-system/internal/timerange"
)

// ReservationStatus represents the status of a booking
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationApproved  ReservationStatus = "APPROVED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Booking is a reservation for a party of guests
type Booking struct {
	ID              int               `json:"id" db:"id"`
	CustomerID      int               `json:"customer_id" db:"customer_id"`
	StartTime       time.Time         `json:"start_time" db:"start_time"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	Guests          int               `json:"guests" db:"guests"`
	Status          ReservationStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	TableNumbers    []int             `json:"table_numbers" db:"table_numbers"`
}

// EndTime is always derived from start and duration
func (b *Booking) EndTime() time.Time {
	return timerange.End(b.StartTime, b.DurationMinutes)
}

// Active reports whether the booking still holds its tables at now
func (b *Booking) Active(now time.Time) bool {
	return b.Status != ReservationCancelled && b.EndTime().After(now)
}

// HasTable reports whether the table is assigned to the booking
func (b *Booking) HasTable(number int) bool {
	for _, n := range b.TableNumbers {
		if n == number {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with b
func (b *Booking) Clone() Booking {
	c := *b
	c.TableNumbers = append([]int(nil), b.TableNumbers...)
	return c
}
