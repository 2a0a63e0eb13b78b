package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/trafficdash/go/clients/traffic_api_client"
	"github.com/mcdev12/trafficdash/go/internal/models"
)

const (
	TypeStateUpdate      = "state_update"
	TypeBatchStateUpdate = "batch_state_update"
)

var (
	// ErrUnknownMessageType is returned for frames whose type is neither a single nor a batch update
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrInvalidMessage is returned for frames that are not valid JSON or miss required fields
	ErrInvalidMessage = errors.New("invalid message")
)

type wireUpdate struct {
	LightID *int                          `json:"light_id"`
	State   *traffic_api_client.WireState `json:"state"`
}

type envelope struct {
	Type string `json:"type"`
	wireUpdate
	Updates *[]wireUpdate `json:"updates"`
}

// Message is a decoded push frame. Updates keep the order they had on the wire.
type Message struct {
	Type    string
	Updates []models.LightUpdate
}

// Decode parses one push frame. Any invalid entry rejects the whole frame.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch env.Type {
	case TypeStateUpdate:
		update, err := env.wireUpdate.toModel()
		if err != nil {
			return Message{}, err
		}
		return Message{Type: env.Type, Updates: []models.LightUpdate{update}}, nil

	case TypeBatchStateUpdate:
		if env.Updates == nil {
			return Message{}, fmt.Errorf("%w: batch without updates", ErrInvalidMessage)
		}
		updates := make([]models.LightUpdate, 0, len(*env.Updates))
		for i, wu := range *env.Updates {
			update, err := wu.toModel()
			if err != nil {
				return Message{}, fmt.Errorf("update %d: %w", i, err)
			}
			updates = append(updates, update)
		}
		return Message{Type: env.Type, Updates: updates}, nil

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

func (w wireUpdate) toModel() (models.LightUpdate, error) {
	if w.LightID == nil || *w.LightID <= 0 {
		return models.LightUpdate{}, fmt.Errorf("%w: missing light_id", ErrInvalidMessage)
	}
	if w.State == nil {
		return models.LightUpdate{}, fmt.Errorf("%w: light %d has no state", ErrInvalidMessage, *w.LightID)
	}
	state, err := w.State.ToModel()
	if err != nil {
		return models.LightUpdate{}, fmt.Errorf("%w: light %d: %v", ErrInvalidMessage, *w.LightID, err)
	}
	return models.LightUpdate{LightID: *w.LightID, State: state}, nil
}

// dropReason labels a decode failure for metrics.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMessageType):
		return "unknown_type"
	default:
		return "invalid"
	}
}
