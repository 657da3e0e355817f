package notify

import (
	"context"
	"sync"
)

// MemoryNotifier records deliveries for tests and can be told to fail for
// specific recipients.
type MemoryNotifier struct {
	mu       sync.Mutex
	sent     []Message
	failures map[string]error
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{failures: make(map[string]error)}
}

// FailFor makes every delivery to recipient return err.
func (n *MemoryNotifier) FailFor(recipient string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[recipient] = err
}

func (n *MemoryNotifier) Notify(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failures[msg.Recipient]; ok {
		return err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// Sent returns a copy of every successfully delivered message.
func (n *MemoryNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.sent))
	copy(out, n.sent)
	return out
}
