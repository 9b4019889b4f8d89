package notification

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"cafe-system/internal/logger"
	"cafe-system/internal/messaging"
	"cafe-system/internal/models"
)

// MessageSource delivers raw broker messages to a handler
type MessageSource interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints customer notifications read from the broker
type Subscriber struct {
	consumer MessageSource
	logger   *logger.Logger
	out      io.Writer

	// Graceful shutdown
	shutdown chan os.Signal
	done     chan error
}

// NewSubscriber creates a new notification subscriber writing to stdout
func NewSubscriber(consumer MessageSource, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      os.Stdout,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan error, 1),
	}
}

// Start consumes notifications until a shutdown signal arrives, ctx is
// cancelled or the consumer fails
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.shutdown)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	go func() {
		s.done <- s.consumer.StartConsuming(ctx, s.handleNotification)
	}()

	select {
	case <-s.shutdown:
		s.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
		return s.gracefulShutdown(requestID)
	case err := <-s.done:
		if err != nil && ctx.Err() == nil {
			s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
			return err
		}
		return s.gracefulShutdown(requestID)
	}
}

// handleNotification decodes and displays one notification
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.NotificationMessage
	if err := messaging.ParseMessage(body, &msg); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}
	if msg.CustomerID <= 0 || msg.Message == "" {
		err := fmt.Errorf("%w: notification without customer or text", messaging.ErrUnprocessable)
		s.logger.Error("message_invalid", "Dropping invalid notification", requestID, err, nil)
		return err
	}

	s.logger.Debug("notification_received", "Received customer notification", requestID, map[string]interface{}{
		"customer_id": msg.CustomerID,
	})

	s.displayNotification(&msg)
	return nil
}

func (s *Subscriber) displayNotification(msg *models.NotificationMessage) {
	fmt.Fprintln(s.out, FormatNotification(msg))

	s.logger.Info("notification_displayed", "Notification displayed to user", "", map[string]interface{}{
		"customer_id": msg.CustomerID,
		"timestamp":   msg.Timestamp.Format("2006-01-02 15:04:05"),
	})
}

// FormatNotification renders a notification as one console line
func FormatNotification(msg *models.NotificationMessage) string {
	return fmt.Sprintf("[%s] Customer %d: %s",
		msg.Timestamp.Format("2006-01-02 15:04:05"), msg.CustomerID, msg.Message)
}

func (s *Subscriber) gracefulShutdown(requestID string) error {
	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, err, nil)
		}
	}

	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
