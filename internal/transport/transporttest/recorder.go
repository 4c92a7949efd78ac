// Package transporttest provides an in-memory transport.Sender for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"
	"time"

	"matchgogo/backend/internal/transport"
)

// ErrUnreachable is returned for chats marked with Fail.
var ErrUnreachable = errors.New("chat unreachable")

// Sent is one recorded outbound call.
type Sent struct {
	Method    string
	ChatID    int64
	Text      string
	FileID    string
	MessageID int
	Keyboard  *transport.Keyboard
}

// Recorder implements transport.Sender and keeps every call.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	failing map[int64]bool
	nextID  int
}

func NewRecorder() *Recorder {
	return &Recorder{failing: make(map[int64]bool)}
}

// Fail makes every send to chatID return ErrUnreachable.
func (r *Recorder) Fail(chatID int64) {
	r.mu.Lock()
	r.failing[chatID] = true
	r.mu.Unlock()
}

func (r *Recorder) record(s Sent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing[s.ChatID] {
		return 0, ErrUnreachable
	}
	if s.MessageID == 0 {
		r.nextID++
		s.MessageID = r.nextID
	}
	r.sent = append(r.sent, s)
	return s.MessageID, nil
}

func (r *Recorder) SendText(_ context.Context, chatID int64, text string, kb *transport.Keyboard) (int, error) {
	return r.record(Sent{Method: "text", ChatID: chatID, Text: text, Keyboard: kb})
}

func (r *Recorder) SendPhoto(_ context.Context, chatID int64, photoID, caption string, kb *transport.Keyboard) (int, error) {
	return r.record(Sent{Method: "photo", ChatID: chatID, FileID: photoID, Text: caption, Keyboard: kb})
}

func (r *Recorder) SendSticker(_ context.Context, chatID int64, fileID string) error {
	_, err := r.record(Sent{Method: "sticker", ChatID: chatID, FileID: fileID})
	return err
}

func (r *Recorder) SendVoice(_ context.Context, chatID int64, fileID, caption string) error {
	_, err := r.record(Sent{Method: "voice", ChatID: chatID, FileID: fileID, Text: caption})
	return err
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := r.record(Sent{Method: "callback", Text: text, FileID: callbackID})
	return err
}

func (r *Recorder) EditMessage(_ context.Context, chatID int64, messageID int, text string, kb *transport.Keyboard) error {
	_, err := r.record(Sent{Method: "edit", ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return err
}

func (r *Recorder) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := r.record(Sent{Method: "delete", ChatID: chatID, MessageID: messageID})
	return err
}

// To returns everything sent to chatID, oldest first.
func (r *Recorder) To(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Texts returns the texts and captions sent to chatID.
func (r *Recorder) Texts(chatID int64) []string {
	var out []string
	for _, s := range r.To(chatID) {
		if s.Text != "" {
			out = append(out, s.Text)
		}
	}
	return out
}

// Last returns the latest message sent to chatID.
func (r *Recorder) Last(chatID int64) (Sent, bool) {
	all := r.To(chatID)
	if len(all) == 0 {
		return Sent{}, false
	}
	return all[len(all)-1], true
}

// WaitFor blocks until at least n messages were sent to chatID or the
// timeout expires. It reports whether the count was reached.
func (r *Recorder) WaitFor(chatID int64, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if len(r.To(chatID)) >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
