// Package transport is the contract between the bot core and a chat
// platform. The core only sees opaque chat ids and media ids.
package transport

import (
	"context"
	"strings"
)

type Kind int

const (
	KindOther Kind = iota
	KindCommand
	KindText
	KindPhoto
	KindLocation
	KindCallback
	KindSticker
	KindVoice
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindLocation:
		return "location"
	case KindCallback:
		return "callback"
	case KindSticker:
		return "sticker"
	case KindVoice:
		return "voice"
	}
	return "other"
}

// Relayable reports whether payloads of this kind can be forwarded to a
// chat partner.
func (k Kind) Relayable() bool {
	switch k {
	case KindText, KindPhoto, KindSticker, KindVoice:
		return true
	}
	return false
}

// Event is one inbound update.
type Event struct {
	ChatID   int64
	Handle   string
	Language string
	Kind     Kind

	// Command and Args are set for KindCommand ("/start foo" -> "start", "foo").
	Command string
	Args    string

	// Text is the message body, or the caption of a media message.
	Text string
	// FileID identifies the photo, sticker or voice note.
	FileID string

	Lat float64
	Lon float64

	// Data and CallbackID are set for KindCallback. MessageID is the message
	// carrying the pressed button.
	Data       string
	CallbackID string
	MessageID  int
}

// ParseCommand splits "/name@bot args" into its parts. ok is false when text
// is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

type Button struct {
	Text string
	// Data is the callback payload of an inline button.
	Data string
	// URL turns the button into a link.
	URL string
	// RequestLocation asks the client to share its location (reply keyboards only).
	RequestLocation bool
}

// Keyboard is attached to an outgoing message. Inline keyboards answer with
// callbacks; reply keyboards answer with plain messages.
type Keyboard struct {
	Rows  [][]Button
	Reply bool
	// Remove hides a previously shown reply keyboard.
	Remove bool
}

// Row is shorthand for one keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Inline builds an inline keyboard.
func Inline(rows ...[]Button) *Keyboard { return &Keyboard{Rows: rows} }

// Sender delivers outbound messages. Methods that create a message return
// its platform message id.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoID, caption string, kb *Keyboard) (int, error)
	SendSticker(ctx context.Context, chatID int64, fileID string) error
	SendVoice(ctx context.Context, chatID int64, fileID, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Source produces inbound events until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}
