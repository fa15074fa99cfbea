package chat

import (
	"sync"

	"github.com/nibblemarket/go-chatclient/internal/types"
)

// Timeline caches the messages of the currently active room. Messages are
// unique by id: Add refuses duplicates, and Confirm collapses a placeholder
// whose push echo already landed, so the same message never appears twice
// regardless of which of the two arrives first.
type Timeline struct {
	mu       sync.Mutex
	messages []types.Message
	lastErr  string
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

func (t *Timeline) Replace(messages []types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = make([]types.Message, len(messages))
	copy(t.messages, messages)
	t.lastErr = ""
}

// Add appends the message unless one with the same id is already present.
// The check and the insert happen under one lock so no suspension point can
// open a time-of-check/time-of-use gap. Returns whether the message was added.
func (t *Timeline) Add(msg types.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.messages {
		if m.MessageId == msg.MessageId {
			return false
		}
	}

	t.messages = append(t.messages, msg)
	return true
}

// Confirm replaces the placeholder with the given id by the server-confirmed
// message, in place. If the confirmed message is already present, e.g. its
// push echo arrived while the send was still in flight, the placeholder is
// dropped instead so the id stays unique. Returns false if the placeholder is
// gone and the confirmed message is nowhere on the timeline, e.g. because the
// room was switched while the send was in flight.
func (t *Timeline) Confirm(placeholderId int, confirmed types.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	placeholderIdx, confirmedIdx := -1, -1
	for i, m := range t.messages {
		switch m.MessageId {
		case placeholderId:
			placeholderIdx = i
		case confirmed.MessageId:
			confirmedIdx = i
		}
	}

	if confirmedIdx >= 0 {
		if placeholderIdx >= 0 {
			t.messages = append(t.messages[:placeholderIdx], t.messages[placeholderIdx+1:]...)
		}
		return true
	}

	if placeholderIdx >= 0 {
		t.messages[placeholderIdx] = confirmed
		return true
	}

	return false
}

// Remove drops the message with the given id, rolling back a failed
// optimistic send.
func (t *Timeline) Remove(messageId int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, m := range t.messages {
		if m.MessageId == messageId {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return true
		}
	}

	return false
}

func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = nil
}

// Messages returns a snapshot of the timeline.
func (t *Timeline) Messages() []types.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	messages := make([]types.Message, len(t.messages))
	copy(messages, t.messages)
	return messages
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.messages)
}

func (t *Timeline) SetError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastErr = msg
}

func (t *Timeline) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lastErr
}
