package component

import (
	"strings"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/ui/style"
)

// DefaultToastTTL is how long a notification stays on screen.
const DefaultToastTTL = 4 * time.Second

type toast struct {
	success bool
	message string
	expires time.Time
}

// Toasts is a short queue of transient notifications.
type Toasts struct {
	items []toast
	ttl   time.Duration
	limit int
}

func NewToasts() *Toasts {
	return &Toasts{ttl: DefaultToastTTL, limit: 3}
}

// Push adds a notification; the oldest one is dropped past the limit.
func (t *Toasts) Push(success bool, message string, now time.Time) {
	t.items = append(t.items, toast{success: success, message: message, expires: now.Add(t.ttl)})
	if len(t.items) > t.limit {
		t.items = t.items[len(t.items)-t.limit:]
	}
}

// Expire drops notifications past their deadline.
func (t *Toasts) Expire(now time.Time) {
	kept := t.items[:0]
	for _, it := range t.items {
		if now.Before(it.expires) {
			kept = append(kept, it)
		}
	}
	t.items = kept
}

func (t *Toasts) Len() int {
	return len(t.items)
}

func (t *Toasts) View() string {
	lines := make([]string, 0, len(t.items))
	for _, it := range t.items {
		if it.success {
			lines = append(lines, style.ToastSuccessStyle.Render("✓ "+it.message))
		} else {
			lines = append(lines, style.ToastErrorStyle.Render("✗ "+it.message))
		}
	}
	return strings.Join(lines, "\n")
}
