package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/ranking"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/transport"
)

// browseState is the page a viewer is flipping through.
type browseState struct {
	offset int
	items  []ranking.Candidate
	pos    int
	// acted counts profiles on this page that were liked or skipped. They
	// drop out of the ranking base, so the next page starts that much earlier.
	acted int
}

type browser struct {
	mu     sync.Mutex
	states map[int64]*browseState
}

func newBrowser() *browser {
	return &browser{states: make(map[int64]*browseState)}
}

func (br *browser) get(viewer int64) (browseState, bool) {
	br.mu.Lock()
	defer br.mu.Unlock()
	st, ok := br.states[viewer]
	if !ok {
		return browseState{}, false
	}
	return *st, true
}

func (br *browser) put(viewer int64, st browseState) {
	br.mu.Lock()
	br.states[viewer] = &st
	br.mu.Unlock()
}

func (br *browser) reset(viewer int64) {
	br.mu.Lock()
	delete(br.states, viewer)
	br.mu.Unlock()
}

// contains reports whether profileID is on viewer's current page.
func (br *browser) contains(viewer, profileID int64) bool {
	br.mu.Lock()
	defer br.mu.Unlock()
	st, ok := br.states[viewer]
	if !ok {
		return false
	}
	for _, c := range st.items {
		if c.User.ChatID == profileID {
			return true
		}
	}
	return false
}

// markActed records a like or skip on the current page.
func (br *browser) markActed(viewer, profileID int64) {
	br.mu.Lock()
	defer br.mu.Unlock()
	st, ok := br.states[viewer]
	if !ok {
		return
	}
	for _, c := range st.items {
		if c.User.ChatID == profileID {
			st.acted++
			return
		}
	}
}

func (b *Bot) handleViewProfiles(ctx context.Context, ev transport.Event, lang, _ string) error {
	if ok, err := b.requireProfile(ctx, ev.ChatID, lang); !ok || err != nil {
		return err
	}
	b.browse.reset(ev.ChatID)
	return b.showPage(ctx, ev.ChatID, lang, 0)
}

func (b *Bot) handleNextMatch(ctx context.Context, ev transport.Event, lang, _ string) error {
	st, ok := b.browse.get(ev.ChatID)
	if !ok {
		return b.handleViewProfiles(ctx, ev, lang, "")
	}
	if st.pos+1 < len(st.items) {
		st.pos++
		b.browse.put(ev.ChatID, st)
		return b.showCandidate(ctx, ev.ChatID, lang, st.items[st.pos])
	}
	// Pages are cut from the ranking base before low scores are dropped,
	// so the next page starts a full page further.
	return b.showPage(ctx, ev.ChatID, lang, st.offset+b.opts.PageSize-st.acted)
}

func (b *Bot) handlePrevMatch(ctx context.Context, ev transport.Event, lang, _ string) error {
	st, ok := b.browse.get(ev.ChatID)
	if !ok {
		return b.handleViewProfiles(ctx, ev, lang, "")
	}
	if st.pos > 0 {
		st.pos--
		b.browse.put(ev.ChatID, st)
	}
	if len(st.items) == 0 {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_profiles"), b.mainMenu(lang))
		return nil
	}
	return b.showCandidate(ctx, ev.ChatID, lang, st.items[st.pos])
}

func (b *Bot) handleLike(ctx context.Context, ev transport.Event, lang, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	if _, err := b.likes.Like(ctx, ev.ChatID, id, ""); err != nil {
		if errors.Is(err, storage.ErrSelfInteraction) {
			b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
			return nil
		}
		return err
	}
	b.browse.markActed(ev.ChatID, id)
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "like_sent"), nil)
	return b.advanceBrowse(ctx, ev, lang)
}

func (b *Bot) handleSkip(ctx context.Context, ev transport.Event, lang, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	if err := b.likes.Skip(ctx, ev.ChatID, id); err != nil {
		if errors.Is(err, storage.ErrSelfInteraction) {
			b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
			return nil
		}
		return err
	}
	b.browse.markActed(ev.ChatID, id)
	return b.advanceBrowse(ctx, ev, lang)
}

// advanceBrowse moves on after a like or skip. Likes sent from the inbound
// list have no browse state and stop here.
func (b *Bot) advanceBrowse(ctx context.Context, ev transport.Event, lang string) error {
	if _, ok := b.browse.get(ev.ChatID); !ok {
		return nil
	}
	return b.handleNextMatch(ctx, ev, lang, "")
}

func (b *Bot) showPage(ctx context.Context, viewer int64, lang string, offset int) error {
	items, err := b.ranking.Rank(ctx, viewer, offset, b.opts.PageSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		b.browse.reset(viewer)
		b.reply(ctx, viewer, b.loc.GetString(lang, "no_profiles"), b.mainMenu(lang))
		return nil
	}
	b.browse.put(viewer, browseState{offset: offset, items: items})
	return b.showCandidate(ctx, viewer, lang, items[0])
}

func (b *Bot) showCandidate(ctx context.Context, viewer int64, lang string, c ranking.Candidate) error {
	return b.sendCard(ctx, viewer, lang, &c.User, "", b.candidateKeyboard(lang, c.User.ChatID))
}

func (b *Bot) handleViewLikes(ctx context.Context, ev transport.Event, lang, _ string) error {
	if ok, err := b.requireProfile(ctx, ev.ChatID, lang); !ok || err != nil {
		return err
	}
	inbound, err := b.likes.Inbound(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if len(inbound) == 0 {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_likes"), b.mainMenu(lang))
		return nil
	}

	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "likes_header"), nil)
	for _, in := range inbound {
		header := ""
		if in.Note != "" {
			header = b.loc.Format(lang, "like_note", in.Note)
		}
		sid := strconv.FormatInt(in.From.ChatID, 10)
		kb := transport.Inline(transport.Row(
			b.button(lang, "btn_like", cbLike+sid),
			b.button(lang, "btn_report", cbReport+sid),
		))
		if err := b.sendCard(ctx, ev.ChatID, lang, &in.From, header, kb); err != nil {
			b.log.Warn("send inbound like", "chat_id", ev.ChatID, "from", in.From.ChatID, "err", err)
		}
	}
	return nil
}

func (b *Bot) handleCommunity(ctx context.Context, ev transport.Event, lang, _ string) error {
	groups, err := storage.RetryRead(func() ([]models.Group, error) {
		return b.store.ListGroups(ctx)
	})
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_communities"), b.mainMenu(lang))
		return nil
	}

	text := b.loc.GetString(lang, "community_header")
	rows := make([][]transport.Button, 0, len(groups))
	for _, g := range groups {
		text += "\n\n• " + g.Name
		if g.Description != "" {
			text += "\n" + g.Description
		}
		rows = append(rows, transport.Row(transport.Button{Text: b.loc.Format(lang, "btn_join", g.Name), URL: g.InviteLink}))
	}
	b.reply(ctx, ev.ChatID, text, transport.Inline(rows...))
	return nil
}

// requireProfile answers users without a profile and reports whether the
// caller may continue.
func (b *Bot) requireProfile(ctx context.Context, chatID int64, lang string) (bool, error) {
	_, err := b.profiles.Get(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, chatID, b.loc.GetString(lang, "no_profile_yet"), nil)
		return false, nil
	}
	return err == nil, err
}
