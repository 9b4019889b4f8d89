package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("booking-engine", &buf)

	log.Info("booking_created", "Booking created", "req-1", map[string]interface{}{
		"booking_id": 3,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "Booking created", entry["msg"])
	assert.Equal(t, "booking-engine", entry["service"])
	assert.Equal(t, "booking_created", entry["action"])
	assert.Equal(t, "req-1", entry["request_id"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, fields["booking_id"])
}

func TestLogger_ErrorGroup(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-engine", &buf)

	log.Error("notify_failed", "Notification failed", "", errors.New("broker down"), nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	errGroup, ok := entry["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "broker down", errGroup["msg"])
	assert.NotEmpty(t, errGroup["stack"])
}

func TestLogger_NilErrorHasNoGroup(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", &buf)

	log.Error("validation_failed", "bad input", "", nil, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, ok := entry["error"]
	assert.False(t, ok)
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
