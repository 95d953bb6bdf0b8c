package llmadapter

import "sync"

// History maintains the context of previous messages sent to or
// received from the LLM provider, to be able to send it with every
// request.
//
// It is generic in T, T being the content representation for any
// supported LLM provider.
type History[T any] struct {
	mu      sync.Mutex
	history []T
}

// Save records messages to the history.
func (h *History[T]) Save(messages ...T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, messages...)
}

// Load returns a copy of the history, to be used in a new request.
func (h *History[T]) Load() []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]T, len(h.history))
	copy(out, h.history)

	return out
}

// Clear removes all history (including system instructions).
func (h *History[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = []T{}
}
