package agent

import (
	"sync"
	"time"
)

// maxMessages caps the in-memory log; older entries are evicted.
const maxMessages = 50

// Message is one entry in the agent's outbound message feed.
type Message struct {
	AgentName string  `json:"agent_name"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// MessageLog is a bounded, concurrency-safe feed of agent messages with
// fan-out to live subscribers.
type MessageLog struct {
	mu     sync.Mutex
	msgs   []Message
	subs   map[int]chan Message
	nextID int
	now    func() time.Time
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{
		subs: make(map[int]chan Message),
		now:  time.Now,
	}
}

// Record appends a message, evicting the oldest entry past the cap, and
// fans it out to subscribers. Slow subscribers drop messages rather than
// block the caller.
func (l *MessageLog) Record(agentName, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{
		AgentName: agentName,
		Message:   message,
		Timestamp: float64(l.now().UnixNano()) / 1e9,
	}
	l.msgs = append(l.msgs, msg)
	if len(l.msgs) > maxMessages {
		l.msgs = l.msgs[len(l.msgs)-maxMessages:]
	}

	for _, ch := range l.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Snapshot returns a copy of the current log, oldest first. Never nil.
func (l *MessageLog) Snapshot() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Subscribe registers a live feed of future messages. The returned cancel
// func must be called to release the subscription; the channel is closed
// on cancel.
func (l *MessageLog) Subscribe() (<-chan Message, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan Message, 16)
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
