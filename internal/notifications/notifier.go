package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a user-facing message.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const DefaultDismissAfter = 3 * time.Second

// Notification is one message shown to the user.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier holds at most one notification. Each one owns an auto-dismiss timer
// that is stopped when a newer notification replaces it, when it is dismissed,
// or when the notifier is closed.
type Notifier struct {
	after time.Duration
	now   func() time.Time

	mu      sync.Mutex
	current *Notification
	timer   *time.Timer
	closed  bool
}

func NewNotifier(dismissAfter time.Duration) *Notifier {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Notifier{after: dismissAfter, now: time.Now}
}

// Show replaces the current notification.
func (n *Notifier) Show(kind Kind, message string) Notification {
	note := Notification{ID: uuid.NewString(), Kind: kind, Message: message, CreatedAt: n.now()}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return note
	}
	n.stopLocked()
	n.current = &note
	n.timer = time.AfterFunc(n.after, func() {
		n.expire(note.ID)
	})
	return note
}

// Current returns the visible notification, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
	n.current = nil
}

// Close dismisses the current notification and ignores later ones.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
	n.current = nil
	n.closed = true
}

// expire clears the notification only if it is still the one the timer was
// started for.
func (n *Notifier) expire(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil && n.current.ID == id {
		n.current = nil
		n.timer = nil
	}
}

func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
