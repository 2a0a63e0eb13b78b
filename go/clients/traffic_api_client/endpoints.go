package traffic_api_client

const (
	// Base URL
	DefaultBaseURL = "http://localhost:8000"

	// API Endpoints
	APIPrefix              = "/api/v1"
	SyncEndpoint           = APIPrefix + "/frontend/sync"
	CitiesEndpoint         = APIPrefix + "/cities/"
	CityEndpoint           = APIPrefix + "/cities/%d"
	AreaEndpoint           = APIPrefix + "/areas/%d"
	ManualOverrideEndpoint = APIPrefix + "/admin/traffic-lights/%d/manual"
	DurationEndpoint       = APIPrefix + "/admin/traffic-lights/%d/duration?duration=%d"
	FavoriteEndpoint       = APIPrefix + "/intersections/%d/favorite"
	ResetEndpoint          = APIPrefix + "/intersections/%d/reset"
	PushEndpoint           = APIPrefix + "/ws"

	// Headers
	AcceptHeader = "Accept"
	JSONMimeType = "application/json"
)
