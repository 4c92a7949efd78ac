// Package ranking scores and orders candidate profiles for a viewer.
package ranking

import (
	"strings"
	"time"

	"matchgogo/backend/internal/geo"
	"matchgogo/backend/internal/models"
)

// Options carries the tunables of the score.
type Options struct {
	// MaxDistanceKM zeroes the distance term beyond this range.
	MaxDistanceKM float64
	// MinInterestMatch is the number of shared tokens below which the
	// interest term is zero.
	MinInterestMatch int
}

const recencyWindow = 24 * time.Hour

// Score rates how well c fits viewer, in [0,1]. It only reads its inputs.
func Score(viewer, c *models.User, now time.Time, opts Options) float64 {
	s := ageScore(viewer.Age, c.Age) +
		interestScore(viewer.Interests, c.Interests, opts.MinInterestMatch) +
		distanceScore(viewer, c, opts.MaxDistanceKM) +
		recencyScore(viewer.LastActive, c.LastActive, now)
	return clamp(s)
}

func ageScore(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	switch {
	case d <= 2:
		return 0.30
	case d <= 5:
		return 0.20
	case d <= 10:
		return 0.10
	}
	return 0
}

func interestScore(a, b string, minShared int) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	if shared == 0 || shared < minShared {
		return 0
	}
	union := len(ta) + len(tb) - shared

	s := float64(shared)/float64(union) + min(0.20, 0.05*float64(shared))
	return 0.40 * min(s, 1)
}

// Tokens splits comma-separated interests into a lowercase set.
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		tok := strings.ToLower(strings.TrimSpace(part))
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func distanceScore(a, b *models.User, maxKM float64) float64 {
	if !a.HasCoords() || !b.HasCoords() {
		return 0
	}
	km := geo.Haversine(*a.Lat, *a.Lon, *b.Lat, *b.Lon)
	if maxKM > 0 && km > maxKM {
		return 0
	}
	switch {
	case km <= 10:
		return 0.20
	case km <= 50:
		return 0.10
	case km <= 100:
		return 0.05
	}
	return 0
}

func recencyScore(a, b, now time.Time) float64 {
	if now.Sub(a) <= recencyWindow && now.Sub(b) <= recencyWindow {
		return 0.10
	}
	return 0
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
