// Package geo resolves free-text locations to coordinates and back.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoResult     = errors.New("geocoder returned no result")
	ErrInvalidCoord = errors.New("coordinates out of range")
)

// Geocoder is the narrow contract of the external geocoding service.
type Geocoder interface {
	Forward(ctx context.Context, query string) (lat, lon float64, display string, err error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Point is a resolved location. Lat/Lon are nil when the text could not be
// resolved.
type Point struct {
	Lat     *float64
	Lon     *float64
	Display string
}

func (p Point) HasCoords() bool { return p.Lat != nil && p.Lon != nil }

var coordPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// Resolver applies the parsing rules and timeouts around a Geocoder.
type Resolver struct {
	geocoder       Geocoder
	forwardTimeout time.Duration
	reverseTimeout time.Duration
	log            *slog.Logger
}

func NewResolver(g Geocoder, forward, reverse time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{geocoder: g, forwardTimeout: forward, reverseTimeout: reverse, log: log}
}

// ParseLocation turns user text into a Point. A literal "lat, lon" pair in
// range is returned as-is; anything else is forward-geocoded. Any geocoder
// failure yields a Point without coordinates carrying the original text.
func (r *Resolver) ParseLocation(ctx context.Context, text string) Point {
	text = strings.TrimSpace(text)
	if lat, lon, ok := ParseCoords(text); ok {
		return Point{Lat: &lat, Lon: &lon, Display: text}
	}
	if r.geocoder == nil || text == "" {
		return Point{Display: text}
	}

	ctx, cancel := context.WithTimeout(ctx, r.forwardTimeout)
	defer cancel()

	lat, lon, display, err := r.geocoder.Forward(ctx, text)
	if err != nil {
		r.log.Warn("forward geocode failed", "query", text, "err", err)
		return Point{Display: text}
	}
	if ValidCoords(lat, lon) != nil {
		return Point{Display: text}
	}
	if display == "" {
		display = text
	}
	return Point{Lat: &lat, Lon: &lon, Display: display}
}

// Reverse returns a display address for the coordinates, or the coordinates
// themselves formatted to four decimals when the lookup fails.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) string {
	if r.geocoder == nil {
		return FormatCoords(lat, lon)
	}
	ctx, cancel := context.WithTimeout(ctx, r.reverseTimeout)
	defer cancel()

	addr, err := r.geocoder.Reverse(ctx, lat, lon)
	if err != nil || addr == "" {
		if err != nil {
			r.log.Warn("reverse geocode failed", "lat", lat, "lon", lon, "err", err)
		}
		return FormatCoords(lat, lon)
	}
	return addr
}

// ParseCoords accepts "lat, lon" with lat in [-90,90] and lon in [-180,180].
func ParseCoords(text string) (lat, lon float64, ok bool) {
	m := coordPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || ValidCoords(lat, lon) != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func ValidCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: %f,%f", ErrInvalidCoord, lat, lon)
	}
	return nil
}

func FormatCoords(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
