// Package geoloc implements the external cell-tower geolocation
// collaborator spec.md §6 describes but places out of core scope: an
// HTTPS POST of the serving cell's identifiers to a regional geolocation
// endpoint, returning whatever location payload the service reports.
package geoloc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Region selects which of the four regional endpoints a request is sent
// to. The core never infers a region from a SIM's MCC; callers configure
// it explicitly.
type Region string

const (
	RegionUS   Region = "us"
	RegionEU   Region = "eu"
	RegionAPAC Region = "apac"
	RegionSA   Region = "sa"
)

// endpoints maps each region to its geolocation endpoint. The hosts are
// placeholders; the map cannot be changed from outside this package, and
// Locate always posts to the entry for the client's Region.
var endpoints = map[Region]string{
	RegionUS:   "https://us.geolocate.example.com/v1/geolocate",
	RegionEU:   "https://eu.geolocate.example.com/v1/geolocate",
	RegionAPAC: "https://apac.geolocate.example.com/v1/geolocate",
	RegionSA:   "https://sa.geolocate.example.com/v1/geolocate",
}

// Cell identifies one serving cell by its location area code and cell ID,
// as read from AT+CREG.
type Cell struct {
	LAC int `json:"lac"`
	CID int `json:"cid"`
}

type request struct {
	Token          string `json:"token"`
	Radio          string `json:"radio"`
	MCC            string `json:"mcc"`
	MNC            string `json:"mnc"`
	Cells          []Cell `json:"cells"`
	Address        int    `json:"address"`
	AcceptLanguage string `json:"accept-language"`
}

// Client posts geolocation requests to a configured region's endpoint.
type Client struct {
	Token          string
	Region         Region
	AcceptLanguage string
	HTTPClient     *http.Client
}

// New creates a Client for region, authorized with token. The returned
// Client's HTTPClient has a 5 second timeout, matching spec.md §6, unless
// overridden directly on the returned value.
func New(token string, region Region) *Client {
	return &Client{
		Token:      token,
		Region:     region,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Locate resolves the approximate location of the serving cells, asking
// the endpoint to also resolve a street address (address: 1). The
// response body is returned verbatim as raw JSON; this package does not
// interpret the provider's schema, per spec.md §6 treating the response as
// passed through.
func (c *Client) Locate(ctx context.Context, mcc, mnc string, cells []Cell) (json.RawMessage, error) {
	endpoint, ok := endpoints[c.Region]
	if !ok {
		return nil, fmt.Errorf("geoloc: unknown region %q", c.Region)
	}

	body, err := json.Marshal(request{
		Token:          c.Token,
		Radio:          "gsm",
		MCC:            mcc,
		MNC:            mnc,
		Cells:          cells,
		Address:        1,
		AcceptLanguage: c.AcceptLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("geoloc: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("geoloc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoloc: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geoloc: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geoloc: endpoint returned %s: %s", resp.Status, respBody)
	}
	return json.RawMessage(respBody), nil
}
