package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-system/internal/logger"
	"cafe-system/internal/messaging"
	"cafe-system/internal/models"
)

type fakeSource struct {
	messages [][]byte
	errs     []error
	failWith error
	closed   bool
}

func (f *fakeSource) StartConsuming(ctx context.Context, handler messaging.MessageHandler) error {
	for _, m := range f.messages {
		f.errs = append(f.errs, handler(ctx, m))
	}
	return f.failWith
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func newTestSubscriber(src MessageSource) (*Subscriber, *bytes.Buffer) {
	var out bytes.Buffer
	s := NewSubscriber(src, logger.Discard())
	s.out = &out
	return s, &out
}

func TestSubscriber_PrintsNotifications(t *testing.T) {
	src := &fakeSource{messages: [][]byte{
		[]byte(`{"customer_id":5,"message":"Booking confirmed!","timestamp":"2026-06-12T19:00:00Z"}`),
		[]byte(`not json`),
		[]byte(`{"customer_id":0,"message":"x"}`),
	}}
	s, out := newTestSubscriber(src)

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, "[2026-06-12 19:00:00] Customer 5: Booking confirmed!\n", out.String())
	require.Len(t, src.errs, 3)
	assert.NoError(t, src.errs[0])
	assert.ErrorIs(t, src.errs[1], messaging.ErrUnprocessable)
	assert.ErrorIs(t, src.errs[2], messaging.ErrUnprocessable)
	assert.True(t, src.closed)
}

func TestSubscriber_ConsumerFailure(t *testing.T) {
	src := &fakeSource{failWith: errors.New("connection refused")}
	s, _ := newTestSubscriber(src)

	assert.EqualError(t, s.Start(context.Background()), "connection refused")
}

func TestBrokerToSubscriberFormat(t *testing.T) {
	at := time.Date(2026, 6, 12, 8, 30, 0, 0, time.UTC)
	msg := models.NewNotificationMessage(2, "Your order #4 is now READY", at)

	assert.Equal(t, "[2026-06-12 08:30:00] Customer 2: Your order #4 is now READY", FormatNotification(msg))
}
