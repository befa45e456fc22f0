package domain

// Notifier is the toast/notification collaborator. Both calls are
// fire-and-forget; the engine never depends on a return value.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Success implements Notifier.
func (NopNotifier) Success(string) {}

// Error implements Notifier.
func (NopNotifier) Error(string) {}
