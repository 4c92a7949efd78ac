package chathub

// Relay forwards p from sender to its partner. It fails with ErrNotInChat
// when sender is not paired. A full partner outbox ends the pair and returns
// ErrRelayFailed.
func (h *Hub) Relay(sender int64, p Payload) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	pr, ok := h.pairs[sender]
	if !ok {
		return ErrNotInChat
	}
	to := pr.partner(sender)
	pr.lastActivity = h.now()

	if !h.pushLocked(to, delivery{from: sender, pair: pr, payload: &p}) {
		h.log.Warn("partner outbox full", "from", sender, "to", to)
		h.endLocked(pr, map[int64]NoticeKind{sender: NoticeRelayFailed})
		return ErrRelayFailed
	}
	return nil
}

// End dissolves chatID's pair. Both sides are notified after any payload
// already relayed. It returns the former partner.
func (h *Hub) End(chatID int64) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pr, ok := h.pairs[chatID]
	if !ok {
		return 0, ErrNotInChat
	}
	partner := pr.partner(chatID)
	h.endLocked(pr, map[int64]NoticeKind{
		chatID:  NoticeEnded,
		partner: NoticePartnerLeft,
	})
	h.log.Info("chat ended", "by", chatID, "partner", partner)
	return partner, nil
}

// ChattedWith reports whether other is chatID's current partner or the
// partner of chatID's last ended chat.
func (h *Hub) ChattedWith(chatID, other int64) bool {
	if other == 0 || other == chatID {
		return false
	}
	if p, ok := h.Partner(chatID); ok && p == other {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPartner[chatID] == other
}

// Leave takes chatID out of random chat entirely: it ends an active pair
// and drops a queued request. Used when a user gets banned.
func (h *Hub) Leave(chatID int64) {
	if _, err := h.End(chatID); err == nil {
		return
	}
	h.Cancel(chatID)
}
