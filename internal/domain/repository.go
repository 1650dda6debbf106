package domain

import (
	"context"
	"time"
)

// ProcessManager handles OS process lookups.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes with the given name.
	FindByName(name string) ([]int, error)

	// NameOf returns the process name for a PID.
	NameOf(pid int) (string, error)
}

// AutomationBridge drives browsers through OS scripting/accessibility APIs.
// Every call is best-effort: an error or empty result means "unknown".
type AutomationBridge interface {
	// CheckPermission reports whether automation is granted.
	// With prompt set the OS may show its consent dialog.
	CheckPermission(ctx context.Context, prompt bool) bool

	// ForegroundApp returns the frontmost application.
	ForegroundApp(ctx context.Context) (*ForegroundApp, error)

	// CurrentURL returns the URL shown by the app's active tab, or "" if unreadable.
	CurrentURL(ctx context.Context, app ForegroundApp, browser Browser) (string, error)

	// Redirect navigates the app's active tab to target.
	Redirect(ctx context.Context, app ForegroundApp, browser Browser, target string) error

	// ListOpenTabURLs returns the tab URLs of all given browsers that are running.
	ListOpenTabURLs(ctx context.Context, browsers []Browser) ([]string, error)
}

// KeyValueStore is the opaque persistence boundary.
// Implementation: SQLCipher encrypted database.
type KeyValueStore interface {
	// Get returns the value and whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Set stores a value.
	Set(key string, value []byte) error

	// Delete removes a key. Missing keys are not an error.
	Delete(key string) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// CalendarFeed is a read-only source of meetings.
type CalendarFeed interface {
	// Authorized reports whether the feed can be queried without user interaction.
	Authorized() bool

	// Events returns the events overlapping [from, to).
	Events(ctx context.Context, from, to time.Time) ([]ExternalEvent, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// CancelFunc stops a repeating job. It is safe to call more than once and
// from inside the job itself.
type CancelFunc func()

// Scheduler runs periodic jobs. Implementation: daemon.Scheduler.
type Scheduler interface {
	// Repeat calls fn every interval until the returned CancelFunc is called.
	Repeat(interval time.Duration, fn func()) CancelFunc
}
