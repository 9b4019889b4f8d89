package models

import "time"

// NotificationMessage is the broker payload for a customer notification
type NotificationMessage struct {
	CustomerID int       `json:"customer_id"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewNotificationMessage stamps a notification with the given time
func NewNotificationMessage(customerID int, message string, at time.Time) *NotificationMessage {
	return &NotificationMessage{
		CustomerID: customerID,
		Message:    message,
		Timestamp:  at.UTC(),
	}
}
