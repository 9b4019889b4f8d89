package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
)

// Notifier delivers a human-readable message to a customer.
// Delivery is best effort and failures are never reported back.
type Notifier interface {
	NotifyCustomer(customerID int, message string)
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a notifier backed by the logger
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// NotifyCustomer logs the notification
func (n *LogNotifier) NotifyCustomer(customerID int, message string) {
	n.logger.Info("customer_notified", fmt.Sprintf("Notification to customer %d: %s", customerID, message), "", map[string]interface{}{
		"customer_id": customerID,
	})
}

// Publisher is the part of the broker publisher the notifier needs
type Publisher interface {
	PublishNotification(ctx context.Context, msg *models.NotificationMessage) error
}

// BrokerNotifier publishes notifications onto the broker fanout exchange
type BrokerNotifier struct {
	publisher Publisher
	logger    *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewBrokerNotifier creates a notifier publishing through p
func NewBrokerNotifier(p Publisher, log *logger.Logger) *BrokerNotifier {
	return &BrokerNotifier{
		publisher: p,
		logger:    log,
		timeout:   5 * time.Second,
		now:       time.Now,
	}
}

// NotifyCustomer publishes the notification; a failed publish is logged and dropped
func (n *BrokerNotifier) NotifyCustomer(customerID int, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	msg := models.NewNotificationMessage(customerID, message, n.now())
	if err := n.publisher.PublishNotification(ctx, msg); err != nil {
		n.logger.Error("notification_publish_failed", "Failed to publish customer notification", "", err, map[string]interface{}{
			"customer_id": customerID,
		})
	}
}

// Sent is one recorded notification
type Sent struct {
	CustomerID int
	Message    string
}

// Recorder keeps notifications in memory, for tests and dry runs
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

// NotifyCustomer records the notification
func (r *Recorder) NotifyCustomer(customerID int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{CustomerID: customerID, Message: message})
}

// Sent returns a copy of everything recorded so far
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Multi fans one notification out to several notifiers
type Multi []Notifier

// NotifyCustomer forwards to every notifier in order
func (m Multi) NotifyCustomer(customerID int, message string) {
	for _, n := range m {
		n.NotifyCustomer(customerID, message)
	}
}
