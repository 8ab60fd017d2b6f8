package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stocks/internal/domain"
)

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 10, 14, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{name: "json object", payload: []byte(`{"order_id":"o-1"}`), want: `{"order_id":"o-1"}`},
		{name: "plain text", payload: []byte("not json"), want: `"not json"`},
		{name: "empty", payload: nil, want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvelope(domain.OutboxMessage{
				ID:            "m-1",
				AggregateType: domain.AggregateTypeBatch,
				AggregateID:   "b-1",
				EventType:     domain.EventTypeAllocated,
				Payload:       tt.payload,
			}, at)

			raw, err := json.Marshal(env)
			require.NoError(t, err)

			var decoded map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.JSONEq(t, tt.want, string(decoded["payload"]))
			assert.Equal(t, time.UTC, env.PublishedAt.Location())
		})
	}
}

func TestEnvelope_Key(t *testing.T) {
	assert.Equal(t, "b-1", Envelope{ID: "m-1", AggregateID: "b-1"}.Key())
	assert.Equal(t, "m-1", Envelope{ID: "m-1"}.Key())
}
