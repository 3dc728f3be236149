package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	ErrNotConfigured = errors.New("geocoding API key is not configured")
	ErrNoResult      = errors.New("geocoding returned no address")
)

type GoogleConfig struct {
	APIKey   string
	Language string        // default: zh-TW
	Timeout  time.Duration // default: 10 seconds
	Endpoint string
}

// GoogleGeocoder resolves coordinates with the Google Geocoding API.
type GoogleGeocoder struct {
	config GoogleConfig
	client *http.Client
}

func NewGoogleGeocoder(cfg GoogleConfig) *GoogleGeocoder {
	if cfg.Language == "" {
		cfg.Language = "zh-TW"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &GoogleGeocoder{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// ResolveAddress returns the first formatted address for lat/lon.
func (g *GoogleGeocoder) ResolveAddress(ctx context.Context, lat, lon float64) (string, error) {
	if g.config.APIKey == "" {
		return "", ErrNotConfigured
	}

	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("key", g.config.APIKey)
	params.Set("language", g.config.Language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	if body.Status != "OK" {
		if body.Status == "ZERO_RESULTS" {
			return "", ErrNoResult
		}
		return "", fmt.Errorf("geocoding API error: %s %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 || body.Results[0].FormattedAddress == "" {
		return "", ErrNoResult
	}

	return body.Results[0].FormattedAddress, nil
}
