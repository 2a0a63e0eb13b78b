package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidStatus is returned when a status is not RED, YELLOW or GREEN
	ErrInvalidStatus = errors.New("invalid light status")
	// ErrInvalidDirection is returned when a direction cannot be mapped to N, S, E or W
	ErrInvalidDirection = errors.New("invalid light direction")
)

// Status is the signal currently shown by a traffic light
type Status string

const (
	StatusRed    Status = "RED"
	StatusYellow Status = "YELLOW"
	StatusGreen  Status = "GREEN"
)

// ParseStatus parses a wire status, accepting any letter case.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusRed:
		return StatusRed, nil
	case StatusYellow:
		return StatusYellow, nil
	case StatusGreen:
		return StatusGreen, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Direction is the approach a traffic light faces
type Direction string

const (
	DirectionNorth Direction = "N"
	DirectionSouth Direction = "S"
	DirectionEast  Direction = "E"
	DirectionWest  Direction = "W"
)

// ParseDirection maps "North"/"N" style values onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return DirectionNorth, nil
	case "S", "SOUTH":
		return DirectionSouth, nil
	case "E", "EAST":
		return DirectionEast, nil
	case "W", "WEST":
		return DirectionWest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// TrafficLight is a single signal head. Status and Expiry are owned by the
// sync coordinator once the light has been loaded.
type TrafficLight struct {
	ID              int        `json:"id"`
	IntersectionID  int        `json:"intersection_id"`
	Direction       Direction  `json:"direction"`
	Status          Status     `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	IsManual        bool       `json:"is_manual"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	Synced          bool       `json:"synced"`
}

// Clone returns a copy that does not share the expiry pointer.
func (l *TrafficLight) Clone() TrafficLight {
	out := *l
	if l.Expiry != nil {
		e := *l.Expiry
		out.Expiry = &e
	}
	return out
}

// LightState is the authoritative state of one light as pushed or pulled from the server
type LightState struct {
	Status Status     `json:"status"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// Equal reports whether two states carry the same status and expiry.
func (s LightState) Equal(o LightState) bool {
	if s.Status != o.Status {
		return false
	}
	if s.Expiry == nil || o.Expiry == nil {
		return s.Expiry == nil && o.Expiry == nil
	}
	return s.Expiry.Equal(*o.Expiry)
}

// LightUpdate pairs a light id with its new state
type LightUpdate struct {
	LightID int
	State   LightState
}

// EpochToTime converts wire epoch seconds into an expiry. Zero, negative and
// missing values mean no countdown.
func EpochToTime(epoch *float64) *time.Time {
	if epoch == nil || *epoch <= 0 || math.IsNaN(*epoch) || math.IsInf(*epoch, 0) {
		return nil
	}
	sec, frac := math.Modf(*epoch)
	t := time.Unix(int64(sec), int64(frac*float64(time.Second)))
	return &t
}

// TimeToEpoch is the inverse of EpochToTime.
func TimeToEpoch(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}
