package chathub

import (
	"context"
)

type delivery struct {
	from    int64
	pair    *pair
	payload *Payload
	notice  *Notice
}

// outbox serializes deliveries to one paired user. A user gets a new outbox
// for every pair; its pump starts only after the previous one for the same
// user has drained, so nothing from an old chat lands inside a new one.
type outbox struct {
	to   int64
	ch   chan delivery
	prev <-chan struct{}
	done chan struct{}
}

func (h *Hub) openOutboxLocked(to int64) {
	if _, ok := h.outboxes[to]; ok {
		return
	}
	ob := &outbox{
		to:   to,
		ch:   make(chan delivery, h.opts.OutboxSize),
		prev: h.drains[to],
		done: make(chan struct{}),
	}
	h.outboxes[to] = ob
	h.drains[to] = ob.done
	h.pumps.Add(1)
	go h.writePump(ob)
}

func (h *Hub) closeOutboxLocked(to int64) {
	ob, ok := h.outboxes[to]
	if !ok {
		return
	}
	delete(h.outboxes, to)
	close(ob.ch)
}

// pushLocked queues d without blocking. It reports false when the outbox is
// missing or full.
func (h *Hub) pushLocked(to int64, d delivery) bool {
	ob, ok := h.outboxes[to]
	if !ok {
		return false
	}
	select {
	case ob.ch <- d:
		return true
	default:
		return false
	}
}

// writePump drains the outbox until it is closed. A failed relay ends the
// pair as if the recipient had left.
func (h *Hub) writePump(ob *outbox) {
	defer h.pumps.Done()
	defer h.pumpDone(ob)

	if ob.prev != nil {
		<-ob.prev
	}
	for d := range ob.ch {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.DeliveryTimeout)
		switch {
		case d.notice != nil:
			h.courier.Notify(ctx, ob.to, *d.notice)
		case d.payload != nil:
			if err := h.courier.Relay(ctx, ob.to, *d.payload); err != nil {
				h.log.Warn("relay failed", "from", d.from, "to", ob.to, "err", err)
				h.relayFailed(d)
			}
		}
		cancel()
	}
	h.log.Debug("outbox closed", "chat_id", ob.to)
}

func (h *Hub) pumpDone(ob *outbox) {
	close(ob.done)
	h.mu.Lock()
	if h.drains[ob.to] == ob.done {
		delete(h.drains, ob.to)
	}
	h.mu.Unlock()
}

// relayFailed ends the pair the payload was relayed in, unless that pair is
// already over.
func (h *Hub) relayFailed(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.pairs[d.from]
	if !ok || p != d.pair {
		return
	}
	h.endLocked(p, map[int64]NoticeKind{d.from: NoticeRelayFailed})
}
