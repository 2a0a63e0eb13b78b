package traffic_api_client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mcdev12/trafficdash/go/clients"
)

// TrafficApiClient talks to the signal server's JSON API
type TrafficApiClient struct {
	*clients.BaseClient
}

func NewTrafficApiClient(baseURL string, timeout time.Duration) *TrafficApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &TrafficApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(AcceptHeader, JSONMimeType)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}

// PushURL derives the same-origin WebSocket URL from the API base URL.
func (c *TrafficApiClient) PushURL() (string, error) {
	u, err := url.Parse(c.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = PushEndpoint
	u.RawQuery = ""
	return u.String(), nil
}
