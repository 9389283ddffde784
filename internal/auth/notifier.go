package auth

import "context"

// Event names the security lifecycle points listeners can observe.
type Event string

const (
	EventPreLogin   Event = "preLogin"
	EventPostLogin  Event = "postLogin"
	EventPreLogout  Event = "preLogout"
	EventPostLogout Event = "postLogout"
)

// Listener receives security events. The username may be empty (e.g. a
// logout without resolvable credentials).
type Listener interface {
	HandleEvent(ctx context.Context, event Event, username string) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, event Event, username string) error

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(ctx context.Context, event Event, username string) error {
	return f(ctx, event, username)
}

// Notifier invokes registered listeners synchronously, in registration
// order. A failing listener stops the notification and its error is
// returned to the caller: these are security-relevant hooks and silently
// swallowing their failures would be unsafe.
type Notifier struct {
	listeners []Listener
}

// AddListener appends a listener. Insertion order is notification order;
// there is no removal.
func (n *Notifier) AddListener(l Listener) {
	n.listeners = append(n.listeners, l)
}

// Notify delivers the event to every listener in order, stopping at the
// first error.
func (n *Notifier) Notify(ctx context.Context, event Event, username string) error {
	for _, l := range n.listeners {
		if err := l.HandleEvent(ctx, event, username); err != nil {
			return err
		}
	}
	return nil
}
