package bot

import (
	"context"
	"errors"
	"strings"

	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/transport"
)

// handleStart shows the menu to known users and starts the setup flow for
// everyone else.
func (b *Bot) handleStart(ctx context.Context, ev transport.Event, lang, _ string) error {
	u, err := b.profiles.Get(ctx, ev.ChatID)
	switch {
	case err == nil:
		if _, err := b.profiles.Cancel(ctx, ev.ChatID); err != nil {
			return err
		}
		b.reply(ctx, ev.ChatID, b.loc.Format(lang, "welcome_back", u.Name), b.mainMenu(lang))
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	st, err := b.profiles.StartSetup(ctx, ev.ChatID, ev.Handle, lang)
	if err != nil {
		return err
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "welcome"), nil)
	text, kb := b.prompt(lang, st.Step)
	b.reply(ctx, ev.ChatID, text, kb)
	return nil
}

func (b *Bot) handleHelp(ctx context.Context, ev transport.Event, lang, _ string) error {
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "help"), b.mainMenu(lang))
	return nil
}

// handleCancel abandons a pending setup or edit and leaves the random chat
// queue.
func (b *Bot) handleCancel(ctx context.Context, ev transport.Event, lang, _ string) error {
	hadSession, err := b.profiles.Cancel(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	wasQueued := b.hub.Cancel(ev.ChatID)

	key := "nothing_to_cancel"
	if hadSession || wasQueued {
		key = "cancelled"
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, key), &transport.Keyboard{Remove: true})
	return nil
}

func (b *Bot) handleMyProfile(ctx context.Context, ev transport.Event, lang, _ string) error {
	u, err := b.profiles.Get(ctx, ev.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_profile_yet"), nil)
		return nil
	}
	if err != nil {
		return err
	}
	return b.sendCard(ctx, ev.ChatID, lang, u, b.loc.GetString(lang, "edit_choose"), b.editKeyboard(lang))
}

func (b *Bot) handleEdit(ctx context.Context, ev transport.Event, lang, field string) error {
	step := profile.Step(field)
	if !step.Valid() || step == profile.StepAgeManual {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	st, err := b.profiles.StartEdit(ctx, ev.ChatID, step)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_profile_yet"), nil)
		return nil
	}
	if err != nil {
		return err
	}
	text, kb := b.prompt(lang, st.Step)
	b.reply(ctx, ev.ChatID, text, kb)
	return nil
}

// advanceSession feeds ev into the pending flow. Answers of the wrong shape
// are consumed and re-prompted.
func (b *Bot) advanceSession(ctx context.Context, ev transport.Event, lang string) error {
	res, err := b.profiles.Advance(ctx, ev.ChatID, inputOf(ev))
	if profile.IsValidation(err) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, validationKey(err)), nil)
		text, kb := b.prompt(lang, res.State.Step)
		b.reply(ctx, ev.ChatID, text, kb)
		return nil
	}
	if err != nil {
		return err
	}

	if !res.State.Done() {
		text, kb := b.prompt(lang, res.State.Step)
		b.reply(ctx, ev.ChatID, text, kb)
		return nil
	}

	key := "profile_created"
	if res.State.Mode == profile.ModeEdit {
		key = "edit_saved"
	}
	b.browse.reset(ev.ChatID)
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, key), &transport.Keyboard{Remove: true})
	if err := b.sendCard(ctx, ev.ChatID, lang, res.User, "", nil); err != nil {
		b.log.Warn("send own card", "chat_id", ev.ChatID, "err", err)
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "main_menu"), b.mainMenu(lang))
	return nil
}

func inputOf(ev transport.Event) profile.Input {
	switch ev.Kind {
	case transport.KindText:
		return profile.Input{Kind: profile.InputText, Text: ev.Text}
	case transport.KindCallback:
		return profile.Input{Kind: profile.InputText, Text: strings.TrimPrefix(ev.Data, setupPrefix)}
	case transport.KindPhoto:
		return profile.Input{Kind: profile.InputPhoto, PhotoID: ev.FileID}
	case transport.KindLocation:
		return profile.Input{Kind: profile.InputLocation, Lat: ev.Lat, Lon: ev.Lon}
	}
	return profile.Input{Kind: profile.InputOther}
}
