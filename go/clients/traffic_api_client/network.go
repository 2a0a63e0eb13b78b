package traffic_api_client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/trafficdash/go/internal/models"
)

type cityResponse struct {
	ID    int            `json:"id"`
	Name  string         `json:"name"`
	Code  string         `json:"code"`
	Areas []areaResponse `json:"areas"`
}

type areaResponse struct {
	ID     int    `json:"id"`
	CityID int    `json:"city_id"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type areaDetailResponse struct {
	areaResponse
	Intersections []intersectionResponse `json:"intersections"`
}

type intersectionResponse struct {
	ID            int                    `json:"id"`
	AreaID        int                    `json:"area_id"`
	Name          string                 `json:"name"`
	Code          string                 `json:"code"`
	Location      string                 `json:"location"`
	IsFavorite    bool                   `json:"is_favorite"`
	TrafficLights []trafficLightResponse `json:"traffic_lights"`
}

type trafficLightResponse struct {
	ID             int    `json:"id"`
	IntersectionID int    `json:"intersection_id"`
	Direction      string `json:"direction"`
	Status         string `json:"status"`
	Duration       int    `json:"duration"`
	IsManual       bool   `json:"is_manual"`
}

// GetCities returns the top-level city list. Areas are not populated.
func (c *TrafficApiClient) GetCities(ctx context.Context) ([]models.City, error) {
	body, err := c.Get(ctx, CitiesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get cities: %w", err)
	}

	var response []cityResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cities: %w", err)
	}

	cities := make([]models.City, 0, len(response))
	for _, cr := range response {
		cities = append(cities, models.City{ID: cr.ID, Name: cr.Name, Code: cr.Code})
	}
	return cities, nil
}

// GetCityAreas returns the areas of one city.
func (c *TrafficApiClient) GetCityAreas(ctx context.Context, cityID int) ([]models.Area, error) {
	body, err := c.Get(ctx, fmt.Sprintf(CityEndpoint, cityID))
	if err != nil {
		return nil, fmt.Errorf("failed to get city %d: %w", cityID, err)
	}

	var response cityResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal city %d: %w", cityID, err)
	}

	areas := make([]models.Area, 0, len(response.Areas))
	for _, ar := range response.Areas {
		cid := ar.CityID
		if cid == 0 {
			cid = cityID
		}
		areas = append(areas, models.Area{ID: ar.ID, CityID: cid, Name: ar.Name, Code: ar.Code})
	}
	return areas, nil
}

// GetAreaIntersections returns the intersections of one area with their lights.
func (c *TrafficApiClient) GetAreaIntersections(ctx context.Context, areaID int) ([]models.Intersection, error) {
	body, err := c.Get(ctx, fmt.Sprintf(AreaEndpoint, areaID))
	if err != nil {
		return nil, fmt.Errorf("failed to get area %d: %w", areaID, err)
	}

	var response areaDetailResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal area %d: %w", areaID, err)
	}

	intersections := make([]models.Intersection, 0, len(response.Intersections))
	for _, ir := range response.Intersections {
		in := models.Intersection{
			ID:         ir.ID,
			AreaID:     areaID,
			Name:       ir.Name,
			Code:       ir.Code,
			Location:   ir.Location,
			IsFavorite: ir.IsFavorite,
			Lights:     make([]*models.TrafficLight, 0, len(ir.TrafficLights)),
		}
		for _, lr := range ir.TrafficLights {
			light, err := lr.toModel(ir.ID)
			if err != nil {
				return nil, fmt.Errorf("area %d intersection %d light %d: %w", areaID, ir.ID, lr.ID, err)
			}
			in.Lights = append(in.Lights, light)
		}
		intersections = append(intersections, in)
	}
	return intersections, nil
}

func (lr trafficLightResponse) toModel(intersectionID int) (*models.TrafficLight, error) {
	dir, err := models.ParseDirection(lr.Direction)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(lr.Status)
	if err != nil {
		return nil, err
	}
	return &models.TrafficLight{
		ID:              lr.ID,
		IntersectionID:  intersectionID,
		Direction:       dir,
		Status:          status,
		DurationSeconds: lr.Duration,
		IsManual:        lr.IsManual,
	}, nil
}
