package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Nominatim talks to an OpenStreetMap Nominatim compatible endpoint.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewNominatim(baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n *Nominatim) Forward(ctx context.Context, query string) (float64, float64, string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return 0, 0, "", err
	}
	if len(places) == 0 {
		return 0, 0, "", ErrNoResult
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("parse lon: %w", err)
	}
	return lat, lon, places[0].DisplayName, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	var place nominatimPlace
	if err := n.get(ctx, "/reverse", q, &place); err != nil {
		return "", err
	}
	if place.Error != "" || place.DisplayName == "" {
		return "", ErrNoResult
	}
	return place.DisplayName, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
