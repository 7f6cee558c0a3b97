package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageKeysAndHeaders(t *testing.T) {
	event := NewEvent(models.EventReportCreated, "assessment-service", map[string]interface{}{"report_id": 7})
	require.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	msg, err := newMessage("7", event)
	require.NoError(t, err)
	assert.Equal(t, "7", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, models.EventReportCreated, string(msg.Headers[0].Value))

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, float64(7), decoded.Data["report_id"])

	unkeyed, err := newMessage("", event)
	require.NoError(t, err)
	assert.Equal(t, event.ID, string(unkeyed.Key))
}

func TestNewMessageRejectsUnencodableData(t *testing.T) {
	event := NewEvent(models.EventReportCreated, "test", map[string]interface{}{"bad": func() {}})
	_, err := newMessage("1", event)
	assert.Error(t, err)
}

func TestProcessRetriesUntilHandlerSucceeds(t *testing.T) {
	calls := 0
	handler := func(context.Context, models.Event) error {
		calls++
		if calls < 3 {
			return errors.New("redis unavailable")
		}
		return nil
	}

	err := process(context.Background(), handler, NewEvent(models.EventReportCreated, "test", nil), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestProcessStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(context.Context, models.Event) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("redis unavailable")
	}

	err := process(ctx, handler, NewEvent(models.EventReportCreated, "test", nil), time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
