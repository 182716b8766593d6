package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "coursesearch.course.upserted", Topic("course", "upserted"))
}

func TestEvent_EncodeDecode(t *testing.T) {
	event, err := NewEvent("coursesearch.course.deleted", "c1", "course", "catalogue", map[string]string{"id": "c1"})
	require.NoError(t, err)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.Version)

	data, err := event.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "c1", decoded.AggregateID)

	var payload struct {
		ID string `json:"id"`
	}
	require.NoError(t, decoded.DecodeData(&payload))
	assert.Equal(t, "c1", payload.ID)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "not json"},
		{"missing type", `{"event_id":"e1","aggregate_id":"c1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.value))
			assert.Error(t, err)
		})
	}

	_, err := DecodeEvent([]byte(`{"event_id":"e1"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEvent_DecodeData_Empty(t *testing.T) {
	event := &Event{EventID: "e1", EventType: "coursesearch.course.upserted"}

	var v map[string]any
	assert.ErrorContains(t, event.DecodeData(&v), "empty payload")
}
