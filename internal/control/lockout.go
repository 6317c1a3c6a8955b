package control

import (
	"sync"
	"time"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

// Lockout enforces a minimum spacing between accepted commands for the same
// actuator. Callers must pass timestamps from time.Now() so the comparison
// rides on the monotonic clock reading and survives wall-clock adjustments.
// Safe for concurrent use; command ingress runs on the HTTP and MQTT
// goroutines.
type Lockout struct {
	mu   sync.Mutex
	last map[models.Role]time.Time
}

func NewLockout() *Lockout {
	return &Lockout{last: make(map[models.Role]time.Time)}
}

// Accept reports whether a command for the actuator may proceed and, if so,
// records its timestamp. A command arriving within min of the previous
// accepted command for the same actuator is rejected and leaves the recorded
// timestamp untouched, so the lockout window is anchored to accepted
// commands only.
func (l *Lockout) Accept(role models.Role, now time.Time, min time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.last[role]; ok && now.Sub(last) < min {
		return false
	}
	l.last[role] = now
	return true
}

// Remaining returns how long until the next command for the actuator would
// be accepted. Zero means a command would pass now.
func (l *Lockout) Remaining(role models.Role, now time.Time, min time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[role]
	if !ok {
		return 0
	}
	if left := min - now.Sub(last); left > 0 {
		return left
	}
	return 0
}
