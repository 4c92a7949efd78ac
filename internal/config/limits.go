package config

import "time"

const (
	// Moderation
	WarnThreshold  = 3
	BanThreshold   = 5
	ReportCooldown = 24 * time.Hour

	// Random chat
	QueueStaleness  = 10 * time.Minute
	PairIdleTimeout = 30 * time.Minute
	SweepInterval   = 5 * time.Minute

	// Ranking
	DefaultPageLimit = 10
	MinScore         = 0.20

	// Likes
	InboundLikesLimit = 20

	// Geocoding
	ForwardGeocodeTimeout = 10 * time.Second
	ReverseGeocodeTimeout = 5 * time.Second

	// Profile
	MinAge = 13
	MaxAge = 120
)

// ViolationTags lists the report reasons offered after a chat or on a profile card.
var ViolationTags = []string{"spam", "abuse", "fake", "nsfw", "other"}
