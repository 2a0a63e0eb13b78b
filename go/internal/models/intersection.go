package models

import "fmt"

// Intersection is a junction controlled by up to four traffic lights, one per direction
type Intersection struct {
	ID         int             `json:"id"`
	AreaID     int             `json:"area_id"`
	Name       string          `json:"name"`
	Code       string          `json:"code"`
	Location   string          `json:"location"`
	IsFavorite bool            `json:"is_favorite"`
	Lights     []*TrafficLight `json:"lights"`
}

// Validate checks that lights belong to this intersection and that no
// direction is used twice.
func (i *Intersection) Validate() error {
	seen := make(map[Direction]int, len(i.Lights))
	for _, l := range i.Lights {
		if l == nil {
			return fmt.Errorf("intersection %d: nil traffic light", i.ID)
		}
		if other, ok := seen[l.Direction]; ok {
			return fmt.Errorf("intersection %d: lights %d and %d share direction %s", i.ID, other, l.ID, l.Direction)
		}
		seen[l.Direction] = l.ID
	}
	return nil
}

// Clone returns a deep copy that is safe to hand out of the cache.
func (i *Intersection) Clone() Intersection {
	out := *i
	out.Lights = make([]*TrafficLight, len(i.Lights))
	for idx, l := range i.Lights {
		c := l.Clone()
		out.Lights[idx] = &c
	}
	return out
}
