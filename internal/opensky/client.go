// Package opensky is a thin client for the OpenSky Network REST API.
// It returns raw response bodies; interpreting the states payload is
// left to callers.
package opensky

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// statesTimeout bounds the primary states lookup.
	statesTimeout = 15 * time.Second
	// metadataTimeout bounds the best-effort aircraft metadata lookup.
	metadataTimeout = 5 * time.Second
)

// Client calls the OpenSky API with optional basic-auth credentials.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// AircraftMetadata is the subset of the OpenSky aircraft database entry
// the service cares about.
type AircraftMetadata struct {
	Registration string `json:"registration"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturername"`
	Operator     string `json:"operator"`
}

// NewClient creates a client against baseURL. Credentials may be empty,
// in which case requests are anonymous (OpenSky allows this at a lower
// quota).
func NewClient(baseURL, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: statesTimeout},
	}
}

// FetchStates performs the primary lookup for an enrichment query
// (e.g. "/states/all?icao24=abc123&time=1700000000") and returns the
// raw body. Any transport error, timeout or non-2xx status is returned
// as an error; callers decide how to degrade.
func (c *Client) FetchStates(query string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+query, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("opensky: states request returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchAircraftMetadata looks up registration/model/operator for an
// aircraft by its icao24 hex code. This hits OpenSky's aircraft
// database, which does not count against the states quota. Metadata is
// non-critical; callers are expected to swallow errors.
func (c *Client) FetchAircraftMetadata(icao24 string) (*AircraftMetadata, error) {
	if icao24 == "" {
		return nil, errors.New("opensky: empty icao24")
	}

	url := c.baseURL + "/metadata/aircraft/icao/" + strings.ToLower(icao24)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: metadataTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opensky: metadata request returned %d", resp.StatusCode)
	}

	var meta AircraftMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.clientID != "" && c.clientSecret != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}
}
