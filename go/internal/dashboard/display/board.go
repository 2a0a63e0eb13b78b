package display

import (
	"fmt"
	"sort"
	"sync"
)

// Placeholder is shown for a light with no running countdown
const Placeholder = "--"

// FormatRemaining renders whole seconds the way the dashboard shows them.
func FormatRemaining(seconds int) string {
	return fmt.Sprintf("%ds", seconds)
}

// Change is emitted whenever a displayed value changes
type Change struct {
	LightID        int    `json:"light_id,omitempty"`
	IntersectionID int    `json:"intersection_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Favorite       *bool  `json:"favorite,omitempty"`
}

// LightView is the rendered countdown for one light
type LightView struct {
	LightID int    `json:"light_id"`
	Text    string `json:"text"`
}

// Snapshot is a copy of everything on the board
type Snapshot struct {
	Lights    []LightView `json:"lights"`
	Favorites []int       `json:"favorites"`
}

// Board is the in-memory dashboard: countdown text per light and the set of
// favorite intersections.
type Board struct {
	mu        sync.RWMutex
	lights    map[int]string
	favorites map[int]bool
	onChange  func(Change)
}

// NewBoard creates an empty board. onChange may be nil.
func NewBoard(onChange func(Change)) *Board {
	return &Board{
		lights:    make(map[int]string),
		favorites: make(map[int]bool),
		onChange:  onChange,
	}
}

// SeedFavorites replaces the favorites set, typically from the cache after a load.
func (b *Board) SeedFavorites(ids []int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.favorites = make(map[int]bool, len(ids))
	for _, id := range ids {
		b.favorites[id] = true
	}
}

func (b *Board) ShowRemaining(lightID int, seconds int) {
	b.setText(lightID, FormatRemaining(seconds))
}

func (b *Board) ShowPlaceholder(lightID int) {
	b.setText(lightID, Placeholder)
}

func (b *Board) FavoriteChanged(intersectionID int, value bool) {
	b.mu.Lock()
	if value {
		b.favorites[intersectionID] = true
	} else {
		delete(b.favorites, intersectionID)
	}
	b.mu.Unlock()

	b.emit(Change{IntersectionID: intersectionID, Favorite: &value})
}

// Text returns what is displayed for a light. Lights never touched show the placeholder.
func (b *Board) Text(lightID int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if text, ok := b.lights[lightID]; ok {
		return text
	}
	return Placeholder
}

// IsFavorite reports whether the board lists the intersection as a favorite.
func (b *Board) IsFavorite(intersectionID int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.favorites[intersectionID]
}

// Snapshot returns the board ordered by id.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		Lights:    make([]LightView, 0, len(b.lights)),
		Favorites: make([]int, 0, len(b.favorites)),
	}
	for id, text := range b.lights {
		snap.Lights = append(snap.Lights, LightView{LightID: id, Text: text})
	}
	sort.Slice(snap.Lights, func(i, j int) bool { return snap.Lights[i].LightID < snap.Lights[j].LightID })
	for id := range b.favorites {
		snap.Favorites = append(snap.Favorites, id)
	}
	sort.Ints(snap.Favorites)
	return snap
}

func (b *Board) setText(lightID int, text string) {
	b.mu.Lock()
	prev, ok := b.lights[lightID]
	b.lights[lightID] = text
	b.mu.Unlock()

	if ok && prev == text {
		return
	}
	b.emit(Change{LightID: lightID, Text: text})
}

func (b *Board) emit(c Change) {
	if b.onChange != nil {
		b.onChange(c)
	}
}
