package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/transport"
)

func (b *Bot) button(lang, key, data string) transport.Button {
	return transport.Button{Text: b.loc.GetString(lang, key), Data: data}
}

func (b *Bot) mainMenu(lang string) *transport.Keyboard {
	return transport.Inline(
		transport.Row(b.button(lang, "btn_view_profiles", cbViewProfiles), b.button(lang, "btn_view_likes", cbViewLikes)),
		transport.Row(b.button(lang, "btn_random", cbRandom), b.button(lang, "btn_community", cbCommunity)),
		transport.Row(b.button(lang, "btn_my_profile", cbMyProfile), b.button(lang, "btn_help", cbHelp)),
	)
}

func (b *Bot) card(lang string, u *models.User) string {
	intent := b.loc.GetString(lang, "intent_dating")
	if u.Intent == models.IntentFriends {
		intent = b.loc.GetString(lang, "intent_friends")
	}
	return b.loc.Format(lang, "profile_card", u.Name, u.Age, u.Location, intent, u.Interests)
}

// sendCard shows u with its photo when there is one.
func (b *Bot) sendCard(ctx context.Context, chatID int64, lang string, u *models.User, header string, kb *transport.Keyboard) error {
	text := b.card(lang, u)
	if header != "" {
		text = header + "\n\n" + text
	}
	var err error
	if u.PhotoID != "" {
		_, err = b.sender.SendPhoto(ctx, chatID, u.PhotoID, text, kb)
	} else {
		_, err = b.sender.SendText(ctx, chatID, text, kb)
	}
	return err
}

func (b *Bot) candidateKeyboard(lang string, id int64) *transport.Keyboard {
	sid := strconv.FormatInt(id, 10)
	return transport.Inline(
		transport.Row(b.button(lang, "btn_like", cbLike+sid), b.button(lang, "btn_skip_profile", cbSkip+sid)),
		transport.Row(b.button(lang, "btn_prev", cbPrevMatch), b.button(lang, "btn_next", cbNextMatch)),
		transport.Row(b.button(lang, "btn_report", cbReport+sid)),
	)
}

func (b *Bot) rateKeyboard(lang string, partner int64) *transport.Keyboard {
	sid := strconv.FormatInt(partner, 10)
	return transport.Inline(
		transport.Row(b.button(lang, "btn_rate_like", cbRateLike+sid), b.button(lang, "btn_rate_dislike", cbRateDislike+sid)),
		transport.Row(b.button(lang, "btn_report", cbReport+sid)),
	)
}

func (b *Bot) violationKeyboard(lang string, reported int64) *transport.Keyboard {
	rows := make([][]transport.Button, 0, len(config.ViolationTags))
	for _, tag := range config.ViolationTags {
		rows = append(rows, transport.Row(b.button(lang, "tag_"+tag, fmt.Sprintf("%s%s_%d", cbViolation, tag, reported))))
	}
	return transport.Inline(rows...)
}

func (b *Bot) editKeyboard(lang string) *transport.Keyboard {
	var rows [][]transport.Button
	var row []transport.Button
	for _, step := range profile.EditableSteps {
		row = append(row, b.button(lang, "btn_edit_"+string(step), cbEdit+string(step)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return transport.Inline(rows...)
}

// prompt renders the question for step.
func (b *Bot) prompt(lang string, step profile.Step) (string, *transport.Keyboard) {
	text := b.loc.GetString(lang, "ask_"+string(step))
	switch step {
	case profile.StepAge:
		var rows [][]transport.Button
		var row []transport.Button
		for age := 18; age < 30; age++ {
			row = append(row, transport.Button{Text: strconv.Itoa(age)})
			if len(row) == 4 {
				rows = append(rows, row)
				row = nil
			}
		}
		rows = append(rows, transport.Row(transport.Button{Text: profile.AgeManualLabel}))
		return text, &transport.Keyboard{Rows: rows, Reply: true}
	case profile.StepGender:
		return text, transport.Inline(transport.Row(
			b.button(lang, "btn_male", setupPrefix+string(models.GenderMale)),
			b.button(lang, "btn_female", setupPrefix+string(models.GenderFemale)),
		))
	case profile.StepIntent:
		return text, transport.Inline(transport.Row(
			b.button(lang, "btn_dating", setupPrefix+strconv.Itoa(int(models.IntentDating))),
			b.button(lang, "btn_friends", setupPrefix+strconv.Itoa(int(models.IntentFriends))),
		))
	case profile.StepLocation:
		return text, &transport.Keyboard{Reply: true, Rows: [][]transport.Button{
			{{Text: b.loc.GetString(lang, "btn_share_location"), RequestLocation: true}},
			{{Text: profile.LocationSkip}},
		}}
	}
	return text, &transport.Keyboard{Remove: true}
}

var validationKeys = []struct {
	err error
	key string
}{
	{profile.ErrEmptyName, "err_name"},
	{profile.ErrInvalidAge, "err_age"},
	{profile.ErrInvalidGender, "err_gender"},
	{profile.ErrInvalidIntent, "err_intent"},
	{profile.ErrInvalidLocation, "err_location"},
	{profile.ErrExpectedPhoto, "err_photo"},
	{profile.ErrInterestsTooShort, "err_interests"},
}

// validationKey maps a flow validation error to its catalog key.
func validationKey(err error) string {
	for _, v := range validationKeys {
		if errors.Is(err, v.err) {
			return v.key
		}
	}
	return "err_text"
}
