package module

// Notifier coalesces wakeups for a worker loop: any number of concurrent
// Notify calls collapse into at most one pending notification, and a worker
// that hasn't read it yet never misses it. It behaves like a value (safe to
// copy and pass around) because the payload is a channel reference.
//
// Used by the stage to wake the worker that moves non-vote packets from the
// buffer into the Scheduler when new packets arrive, and to wake the
// dispatch loop when there is new pending work, without either producer
// blocking on a slow or absent consumer.
type Notifier struct {
	notifier chan struct{} // buffered channel with capacity 1
}

// NewNotifier instantiates a Notifier. Notifiers essentially behave like
// channels in that they can be passed by value and still allow concurrent
// updates of the same internal state.
func NewNotifier() Notifier {
	return Notifier{make(chan struct{}, 1)}
}

// Notify sends a notification
func (n Notifier) Notify() {
	select {
	// to prevent from getting blocked by dropping the notification if
	// there is no handler subscribing the channel.
	case n.notifier <- struct{}{}:
	default:
	}
}

// Channel returns a channel for receiving notifications
func (n Notifier) Channel() <-chan struct{} {
	return n.notifier
}
