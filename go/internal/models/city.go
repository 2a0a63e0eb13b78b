package models

// City is the root of the signal network tree. Areas is nil until the city's
// detail has been fetched, after which it is always non-nil.
type City struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Code  string  `json:"code"`
	Areas []*Area `json:"-"`
}

// AreasLoaded reports whether the city's areas have been fetched.
func (c *City) AreasLoaded() bool {
	return c.Areas != nil
}

// Area groups intersections inside a single city
type Area struct {
	ID            int             `json:"id"`
	CityID        int             `json:"city_id"`
	Name          string          `json:"name"`
	Code          string          `json:"code"`
	Intersections []*Intersection `json:"-"`
}

// IntersectionsLoaded reports whether the area's intersections have been fetched.
func (a *Area) IntersectionsLoaded() bool {
	return a.Intersections != nil
}
