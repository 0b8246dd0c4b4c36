// Package events carries progress updates from running tasks to observers
// (the CLI progress view, dashboards, logs).
package events

import (
	"sync"
	"time"
)

// GlobalTaskID is the special task ID for subscribing to all task events.
const GlobalTaskID = "*"

// ProgressUpdate reports execution progress for one task. Progress is a
// percentage in [0, 100].
type ProgressUpdate struct {
	TaskID      string    `json:"task_id"`
	Progress    int       `json:"progress"`
	Status      string    `json:"status"`
	CurrentStep string    `json:"current_step"`
	Output      string    `json:"output,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher distributes progress updates to subscribers.
type Publisher interface {
	// Publish sends an update to all subscribers of its task.
	Publish(update ProgressUpdate)
	// Subscribe returns a channel receiving updates for the given task.
	// Use GlobalTaskID ("*") to receive updates for all tasks.
	Subscribe(taskID string) <-chan ProgressUpdate
	// Unsubscribe removes and closes a subscription channel.
	Unsubscribe(taskID string, ch <-chan ProgressUpdate)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory Publisher.
type MemoryPublisher struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ProgressUpdate
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan ProgressUpdate),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends the update to task-specific and global subscribers.
// Non-blocking: subscribers with full buffers miss the update.
func (p *MemoryPublisher) Publish(update ProgressUpdate) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	for _, ch := range p.subscribers[update.TaskID] {
		select {
		case ch <- update:
		default:
		}
	}

	if update.TaskID != GlobalTaskID {
		for _, ch := range p.subscribers[GlobalTaskID] {
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives updates for the given task.
func (p *MemoryPublisher) Subscribe(taskID string) <-chan ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan ProgressUpdate)
		close(ch)
		return ch
	}

	ch := make(chan ProgressUpdate, p.bufferSize)
	p.subscribers[taskID] = append(p.subscribers[taskID], ch)
	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (p *MemoryPublisher) Unsubscribe(taskID string, ch <-chan ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[taskID]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[taskID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
}

// Close shuts down the publisher and closes all subscription channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for _, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subscribers = make(map[string][]chan ProgressUpdate)
}

// NopPublisher discards all updates. Useful where progress reporting is
// optional.
type NopPublisher struct{}

func (NopPublisher) Publish(ProgressUpdate) {}

func (NopPublisher) Subscribe(string) <-chan ProgressUpdate {
	ch := make(chan ProgressUpdate)
	close(ch)
	return ch
}

func (NopPublisher) Unsubscribe(string, <-chan ProgressUpdate) {}

func (NopPublisher) Close() {}
