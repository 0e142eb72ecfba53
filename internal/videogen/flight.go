package videogen

import (
	"sync"

	"ashserver/internal/domain"
)

// Flight tracks which conversations have a render in progress. A second
// request against a busy conversation is rejected up front rather than
// queued, since both pipelines only ever keep one artifact per conversation.
type Flight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewFlight constructs an empty registry.
func NewFlight() *Flight {
	return &Flight{active: make(map[string]struct{})}
}

// Acquire marks the conversation busy. It returns
// domain.ErrConversationBusy when a render is already running for it.
func (f *Flight) Acquire(chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[chatID]; busy {
		return domain.ErrConversationBusy
	}
	f.active[chatID] = struct{}{}
	return nil
}

// Release clears the busy mark. Releasing an idle conversation is a no-op.
func (f *Flight) Release(chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, chatID)
}
