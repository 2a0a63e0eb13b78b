package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/trafficdash/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0)
	return &t
}

func TestDecode_StateUpdate(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"state_update","light_id":7,"state":{"status":"GREEN","end_time":1700000010}}`))
	require.NoError(t, err)

	want := Message{
		Type:    TypeStateUpdate,
		Updates: []models.LightUpdate{{LightID: 7, State: models.LightState{Status: models.StatusGreen, Expiry: ts(1700000010)}}},
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_BatchKeepsOrder(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"batch_state_update","updates":[
		{"light_id":3,"state":{"status":"RED","end_time":null}},
		{"light_id":3,"state":{"status":"GREEN","end_time":1700000020}},
		{"light_id":4,"state":{"status":"YELLOW","end_time":0}}
	]}`))
	require.NoError(t, err)

	want := []models.LightUpdate{
		{LightID: 3, State: models.LightState{Status: models.StatusRed}},
		{LightID: 3, State: models.LightState{Status: models.StatusGreen, Expiry: ts(1700000020)}},
		{LightID: 4, State: models.LightState{Status: models.StatusYellow}},
	}
	assert.Equal(t, TypeBatchStateUpdate, msg.Type)
	if diff := cmp.Diff(want, msg.Updates); diff != "" {
		t.Errorf("batch updates mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_EmptyBatch(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"batch_state_update","updates":[]}`))
	require.NoError(t, err)
	assert.Empty(t, msg.Updates)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"type":`, ErrInvalidMessage},
		{"unknown type", `{"type":"hello"}`, ErrUnknownMessageType},
		{"missing type", `{"light_id":1,"state":{"status":"RED"}}`, ErrUnknownMessageType},
		{"missing light id", `{"type":"state_update","state":{"status":"RED"}}`, ErrInvalidMessage},
		{"missing state", `{"type":"state_update","light_id":1}`, ErrInvalidMessage},
		{"bad status", `{"type":"state_update","light_id":1,"state":{"status":"PURPLE"}}`, ErrInvalidMessage},
		{"batch without updates", `{"type":"batch_state_update"}`, ErrInvalidMessage},
		{"one bad entry spoils the batch", `{"type":"batch_state_update","updates":[
			{"light_id":1,"state":{"status":"RED"}},
			{"light_id":2,"state":{"status":"OFF"}}]}`, ErrInvalidMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDropReason(t *testing.T) {
	_, err := Decode([]byte(`{"type":"nope"}`))
	assert.Equal(t, "unknown_type", dropReason(err))
	_, err = Decode([]byte(`[]`))
	assert.Equal(t, "invalid", dropReason(err))
}
