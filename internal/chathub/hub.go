// Package chathub pairs users for anonymous random chats and relays their
// messages.
//
// The queue and the pair index live behind one mutex. Everything delivered to
// a paired user goes through that user's outbox, which is filled while the
// mutex is held, so a payload relayed before an End is always delivered
// before the end notice.
package chathub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/transport"
)

var (
	ErrAlreadyChatting = errors.New("already in a chat")
	ErrAlreadyQueued   = errors.New("already waiting for a partner")
	ErrNotInChat       = errors.New("not in a chat")
	ErrRelayFailed     = errors.New("partner unreachable")
	ErrInvalidFilter   = errors.New("invalid gender filter")
)

// Payload is a relayed message. Kind is one of the relayable transport kinds.
type Payload struct {
	Kind    transport.Kind
	Text    string
	FileID  string
	Caption string
}

type NoticeKind int

const (
	// NoticePaired: a partner was found.
	NoticePaired NoticeKind = iota
	// NoticeEnded: the recipient ended the chat.
	NoticeEnded
	// NoticePartnerLeft: the partner ended the chat.
	NoticePartnerLeft
	// NoticeIdleTimeout: the chat ended for inactivity.
	NoticeIdleTimeout
	// NoticeRelayFailed: a message could not reach the partner, so the chat ended.
	NoticeRelayFailed
	// NoticeQueueExpired: nobody was found in time.
	NoticeQueueExpired
)

type Notice struct {
	Kind    NoticeKind
	Partner int64
}

// Courier performs the actual deliveries on behalf of the hub.
type Courier interface {
	Relay(ctx context.Context, to int64, p Payload) error
	Notify(ctx context.Context, to int64, n Notice)
}

// Mirror persists the waiting queue so it survives restarts.
type Mirror interface {
	SaveQueueEntry(ctx context.Context, entry *models.RandomChatQueueEntry) error
	DeleteQueueEntry(ctx context.Context, chatID int64) error
}

type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusChatting
)

// RequestResult is the outcome of Request.
type RequestResult struct {
	Status  Status
	Partner int64
}

type waiter struct {
	chatID     int64
	filter     models.GenderFilter
	gender     models.Gender
	language   string
	enqueuedAt time.Time
}

type pair struct {
	a, b         int64
	startedAt    time.Time
	lastActivity time.Time
}

func (p *pair) partner(id int64) int64 {
	if p.a == id {
		return p.b
	}
	return p.a
}

type mirrorOp struct {
	entry  *models.RandomChatQueueEntry
	remove int64
}

type Options struct {
	QueueStaleness  time.Duration
	PairIdleTimeout time.Duration
	SweepInterval   time.Duration
	OutboxSize      int
	DeliveryTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		QueueStaleness:  config.QueueStaleness,
		PairIdleTimeout: config.PairIdleTimeout,
		SweepInterval:   config.SweepInterval,
		OutboxSize:      64,
		DeliveryTimeout: 15 * time.Second,
	}
}

type Hub struct {
	mu       sync.Mutex
	queue    []*waiter
	pairs    map[int64]*pair
	outboxes map[int64]*outbox
	// drains holds the done channel of each user's latest pump.
	drains map[int64]chan struct{}
	// lastPartner is the partner of each user's last ended chat.
	lastPartner map[int64]int64

	courier  Courier
	mirror   Mirror
	mirrorCh chan mirrorOp
	opts     Options
	log      *slog.Logger
	now      func() time.Time
	pumps    sync.WaitGroup
}

// NewHub creates a hub. mirror may be nil.
func NewHub(courier Courier, mirror Mirror, opts Options, log *slog.Logger) *Hub {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 64
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 15 * time.Second
	}
	return &Hub{
		pairs:       make(map[int64]*pair),
		outboxes:    make(map[int64]*outbox),
		drains:      make(map[int64]chan struct{}),
		lastPartner: make(map[int64]int64),
		courier:     courier,
		mirror:      mirror,
		mirrorCh:    make(chan mirrorOp, 256),
		opts:        opts,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (h *Hub) WithClock(now func() time.Time) *Hub {
	h.now = now
	return h
}

// Request pairs chatID with the oldest compatible waiter, or queues it.
// Compatibility is symmetric: each side's filter must accept the other's
// gender.
func (h *Hub) Request(chatID int64, gender models.Gender, filter models.GenderFilter, language string) (RequestResult, error) {
	if !filter.Valid() {
		return RequestResult{}, ErrInvalidFilter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.pairs[chatID]; ok {
		return RequestResult{Status: StatusChatting, Partner: p.partner(chatID)}, ErrAlreadyChatting
	}
	if h.indexOfLocked(chatID) >= 0 {
		return RequestResult{Status: StatusQueued}, ErrAlreadyQueued
	}

	for i, w := range h.queue {
		if !w.filter.Accepts(gender) || !filter.Accepts(w.gender) {
			continue
		}
		h.queue = append(h.queue[:i], h.queue[i+1:]...)
		h.mirrorLocked(mirrorOp{remove: w.chatID})
		h.pairLocked(w.chatID, chatID)
		h.log.Info("chat paired", "a", w.chatID, "b", chatID)
		return RequestResult{Status: StatusChatting, Partner: w.chatID}, nil
	}

	w := &waiter{chatID: chatID, filter: filter, gender: gender, language: language, enqueuedAt: h.now()}
	h.queue = append(h.queue, w)
	h.mirrorLocked(mirrorOp{entry: w.entry()})
	h.log.Debug("chat queued", "chat_id", chatID, "filter", filter)
	return RequestResult{Status: StatusQueued}, nil
}

// Cancel removes chatID from the queue. It reports whether it was waiting.
func (h *Hub) Cancel(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexOfLocked(chatID)
	if i < 0 {
		return false
	}
	h.queue = append(h.queue[:i], h.queue[i+1:]...)
	h.mirrorLocked(mirrorOp{remove: chatID})
	return true
}

// Status reports whether chatID is idle, waiting or chatting.
func (h *Hub) Status(chatID int64) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pairs[chatID]; ok {
		return StatusChatting
	}
	if h.indexOfLocked(chatID) >= 0 {
		return StatusQueued
	}
	return StatusIdle
}

// Partner returns the current partner of chatID.
func (h *Hub) Partner(chatID int64) (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pairs[chatID]
	if !ok {
		return 0, false
	}
	return p.partner(chatID), true
}

// Counts returns the queue length and the number of active pairs.
func (h *Hub) Counts() (queued, pairs int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue), len(h.pairs) / 2
}

func (h *Hub) indexOfLocked(chatID int64) int {
	for i, w := range h.queue {
		if w.chatID == chatID {
			return i
		}
	}
	return -1
}

func (h *Hub) pairLocked(a, b int64) {
	now := h.now()
	p := &pair{a: a, b: b, startedAt: now, lastActivity: now}
	h.pairs[a] = p
	h.pairs[b] = p
	h.openOutboxLocked(a)
	h.openOutboxLocked(b)
	h.pushLocked(a, delivery{notice: &Notice{Kind: NoticePaired, Partner: b}})
	h.pushLocked(b, delivery{notice: &Notice{Kind: NoticePaired, Partner: a}})
}

// endLocked dissolves p, queues the given notices and closes both outboxes.
func (h *Hub) endLocked(p *pair, notices map[int64]NoticeKind) {
	delete(h.pairs, p.a)
	delete(h.pairs, p.b)
	h.lastPartner[p.a] = p.b
	h.lastPartner[p.b] = p.a
	for _, id := range []int64{p.a, p.b} {
		if kind, ok := notices[id]; ok {
			h.pushLocked(id, delivery{notice: &Notice{Kind: kind, Partner: p.partner(id)}})
		}
		h.closeOutboxLocked(id)
	}
}

func (w *waiter) entry() *models.RandomChatQueueEntry {
	return &models.RandomChatQueueEntry{
		ChatID:     w.chatID,
		Filter:     w.filter,
		Gender:     w.gender,
		Language:   w.language,
		EnqueuedAt: w.enqueuedAt,
	}
}

func (h *Hub) mirrorLocked(op mirrorOp) {
	if h.mirror == nil {
		return
	}
	select {
	case h.mirrorCh <- op:
	default:
		h.log.Warn("queue mirror backlog full, dropping write")
	}
}

// Shutdown closes every outbox and waits for pending deliveries, or for ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for id := range h.outboxes {
		h.closeOutboxLocked(id)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
