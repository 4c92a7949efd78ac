package bot

import (
	"context"
	"strings"

	"matchgogo/backend/internal/transport"
)

type handlerFunc func(ctx context.Context, ev transport.Event, lang, arg string) error

type prefixRoute struct {
	prefix string
	h      handlerFunc
}

const (
	setupPrefix = "setup_"

	cbViewProfiles = "view_profiles"
	cbViewLikes    = "view_likes"
	cbRandom       = "random"
	cbCommunity    = "community"
	cbMyProfile    = "my_profile"
	cbHelp         = "help"
	cbPrevMatch    = "prev_match"
	cbNextMatch    = "next_match"
	cbEndChat      = "end_chat"
	cbCancelSearch = "cancel_search"

	cbRandomFilter = "random_"
	cbLike         = "like_"
	cbSkip         = "skip_"
	cbReport       = "report_"
	cbRateLike     = "rate_like_"
	cbRateDislike  = "rate_dislike_"
	cbViolation    = "violation_"
	cbEdit         = "edit_"
)

// lookup resolves a command name or callback payload to its handler and the
// argument that follows the matched prefix.
func (b *Bot) lookup(kind transport.Kind, name string) (handlerFunc, string) {
	if kind == transport.KindCommand {
		switch name {
		case "start":
			return b.handleStart, ""
		case "help":
			return b.handleHelp, ""
		case "cancel":
			return b.handleCancel, ""
		case "end", "stop":
			return b.handleEnd, ""
		case "profile":
			return b.handleMyProfile, ""
		case "browse":
			return b.handleViewProfiles, ""
		case "likes":
			return b.handleViewLikes, ""
		case "random":
			return b.handleRandom, ""
		}
		return nil, ""
	}

	switch name {
	case cbViewProfiles:
		return b.handleViewProfiles, ""
	case cbViewLikes:
		return b.handleViewLikes, ""
	case cbRandom:
		return b.handleRandom, ""
	case cbCommunity:
		return b.handleCommunity, ""
	case cbMyProfile:
		return b.handleMyProfile, ""
	case cbHelp:
		return b.handleHelp, ""
	case cbPrevMatch:
		return b.handlePrevMatch, ""
	case cbNextMatch:
		return b.handleNextMatch, ""
	case cbEndChat:
		return b.handleEnd, ""
	case cbCancelSearch:
		return b.handleCancelSearch, ""
	}

	routes := []prefixRoute{
		{cbRateLike, b.handleRateLike},
		{cbRateDislike, b.handleRateDislike},
		{cbRandomFilter, b.handleRandomFilter},
		{cbLike, b.handleLike},
		{cbSkip, b.handleSkip},
		{cbReport, b.handleReport},
		{cbViolation, b.handleViolation},
		{cbEdit, b.handleEdit},
	}
	for _, r := range routes {
		if arg, ok := strings.CutPrefix(name, r.prefix); ok && arg != "" {
			return r.h, arg
		}
	}
	return nil, ""
}
