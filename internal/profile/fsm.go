// Package profile owns user profiles and the step-by-step flow that creates
// and edits them.
package profile

import (
	"errors"
	"strconv"
	"strings"

	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/models"
)

// Step labels the input a session is waiting for.
type Step string

const (
	StepName      Step = "name"
	StepAge       Step = "age"
	StepAgeManual Step = "age_manual"
	StepGender    Step = "gender"
	StepIntent    Step = "intent"
	StepLocation  Step = "location"
	StepPhoto     Step = "photo"
	StepInterests Step = "interests"
	StepComplete  Step = "complete"
)

// EditableSteps are the fields reachable from the profile card.
var EditableSteps = []Step{StepName, StepAge, StepGender, StepIntent, StepLocation, StepPhoto, StepInterests}

func (s Step) Valid() bool {
	switch s {
	case StepName, StepAge, StepAgeManual, StepGender, StepIntent, StepLocation, StepPhoto, StepInterests:
		return true
	}
	return false
}

type Mode string

const (
	ModeSetup Mode = "setup"
	ModeEdit  Mode = "edit"
)

const (
	AgeManualLabel  = "30+"
	LocationSkip    = "skip"
	LocationSkipped = "not shared"
)

var (
	ErrEmptyName         = errors.New("name must not be empty")
	ErrInvalidAge        = errors.New("age must be a whole number between 13 and 120")
	ErrInvalidGender     = errors.New("unknown gender")
	ErrInvalidIntent     = errors.New("unknown intent")
	ErrInvalidLocation   = errors.New("location expected")
	ErrExpectedPhoto     = errors.New("photo expected")
	ErrInterestsTooShort = errors.New("interests must be at least 2 characters")
	ErrExpectedText      = errors.New("text expected")
	ErrNoSession         = errors.New("no active session")
)

// IsValidation reports whether err is a user input error that should be
// answered with a re-prompt.
func IsValidation(err error) bool {
	for _, v := range []error{ErrEmptyName, ErrInvalidAge, ErrInvalidGender, ErrInvalidIntent,
		ErrInvalidLocation, ErrExpectedPhoto, ErrInterestsTooShort, ErrExpectedText} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// InputKind is the shape of one user answer.
type InputKind int

const (
	InputText InputKind = iota
	InputPhoto
	InputLocation
	// InputOther is anything the flow cannot consume (stickers, voice).
	InputOther
)

type Input struct {
	Kind    InputKind
	Text    string
	PhotoID string
	Lat     float64
	Lon     float64
}

// Draft carries the answers collected so far.
type Draft struct {
	Handle    string        `json:"handle,omitempty"`
	Language  string        `json:"language,omitempty"`
	Name      string        `json:"name,omitempty"`
	Age       int           `json:"age,omitempty"`
	Gender    models.Gender `json:"gender,omitempty"`
	Intent    models.Intent `json:"intent,omitempty"`
	Location  string        `json:"location,omitempty"`
	Lat       *float64      `json:"lat,omitempty"`
	Lon       *float64      `json:"lon,omitempty"`
	PhotoID   string        `json:"photo_id,omitempty"`
	Interests string        `json:"interests,omitempty"`
}

// State is the persisted variant: which step is pending, in which mode, with
// the answers collected so far.
type State struct {
	Mode  Mode
	Step  Step
	Draft Draft
}

func (s State) Done() bool { return s.Step == StepComplete }

var setupOrder = map[Step]Step{
	StepName:      StepAge,
	StepAge:       StepGender,
	StepAgeManual: StepGender,
	StepGender:    StepIntent,
	StepIntent:    StepLocation,
	StepLocation:  StepPhoto,
	StepPhoto:     StepInterests,
	StepInterests: StepComplete,
}

// Apply validates in against the pending step and returns the next state.
// On a validation error the returned state equals s.
func Apply(s State, in Input) (State, error) {
	next := s
	switch s.Step {
	case StepName:
		text, err := textOf(in)
		if err != nil {
			return s, err
		}
		name, err := ValidateName(text)
		if err != nil {
			return s, err
		}
		next.Draft.Name = name

	case StepAge, StepAgeManual:
		text, err := textOf(in)
		if err != nil {
			return s, err
		}
		if s.Step == StepAge && strings.TrimSpace(text) == AgeManualLabel {
			next.Step = StepAgeManual
			return next, nil
		}
		age, err := ValidateAge(text)
		if err != nil {
			return s, err
		}
		next.Draft.Age = age

	case StepGender:
		text, err := textOf(in)
		if err != nil {
			return s, err
		}
		g, err := ParseGender(text)
		if err != nil {
			return s, err
		}
		next.Draft.Gender = g

	case StepIntent:
		text, err := textOf(in)
		if err != nil {
			return s, err
		}
		intent, err := ParseIntent(text)
		if err != nil {
			return s, err
		}
		next.Draft.Intent = intent

	case StepLocation:
		switch in.Kind {
		case InputLocation:
			lat, lon := in.Lat, in.Lon
			next.Draft.Lat, next.Draft.Lon = &lat, &lon
			next.Draft.Location = in.Text
		case InputText:
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return s, ErrInvalidLocation
			}
			next.Draft.Lat, next.Draft.Lon = nil, nil
			if strings.EqualFold(text, LocationSkip) {
				next.Draft.Location = LocationSkipped
			} else {
				next.Draft.Location = text
			}
		default:
			return s, ErrInvalidLocation
		}

	case StepPhoto:
		if in.Kind != InputPhoto || in.PhotoID == "" {
			return s, ErrExpectedPhoto
		}
		next.Draft.PhotoID = in.PhotoID

	case StepInterests:
		text, err := textOf(in)
		if err != nil {
			return s, err
		}
		interests, err := ValidateInterests(text)
		if err != nil {
			return s, err
		}
		next.Draft.Interests = interests

	default:
		return s, ErrNoSession
	}

	if s.Mode == ModeEdit {
		next.Step = StepComplete
	} else {
		next.Step = setupOrder[s.Step]
	}
	return next, nil
}

func textOf(in Input) (string, error) {
	if in.Kind != InputText {
		return "", ErrExpectedText
	}
	return in.Text, nil
}

func ValidateName(text string) (string, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func ValidateAge(text string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || age < config.MinAge || age > config.MaxAge {
		return 0, ErrInvalidAge
	}
	return age, nil
}

func ParseGender(text string) (models.Gender, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "m", "male":
		return models.GenderMale, nil
	case "f", "female":
		return models.GenderFemale, nil
	}
	return "", ErrInvalidGender
}

func ParseIntent(text string) (models.Intent, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "1", "dating":
		return models.IntentDating, nil
	case "2", "friends":
		return models.IntentFriends, nil
	}
	return 0, ErrInvalidIntent
}

func ValidateInterests(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < 2 {
		return "", ErrInterestsTooShort
	}
	return text, nil
}

// ApplyField copies the field edited in d onto u.
func ApplyField(u *models.User, field Step, d Draft) {
	switch field {
	case StepName:
		u.Name = d.Name
	case StepAge, StepAgeManual:
		u.Age = d.Age
	case StepGender:
		u.Gender = d.Gender
	case StepIntent:
		u.Intent = d.Intent
	case StepLocation:
		u.Location, u.Lat, u.Lon = d.Location, d.Lat, d.Lon
	case StepPhoto:
		u.PhotoID = d.PhotoID
	case StepInterests:
		u.Interests = d.Interests
	}
}
