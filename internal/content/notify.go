package content

import (
	"context"
	"log"
	"time"
)

// PushNotifier delivers an event to a device. Delivery is best effort;
// clients resync over the status endpoints after reconnect.
type PushNotifier interface {
	Notify(ctx context.Context, deviceToken, eventType string, payload []byte) error
}

// LogNotifier is the default sink when no push transport is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, deviceToken, eventType string, _ []byte) error {
	log.Printf("push %s to %s", eventType, deviceToken)
	return nil
}

// Dispatcher wraps a PushNotifier with fire-and-forget delivery and bounded
// retry, keeping slow providers off the request path.
type Dispatcher struct {
	notifier PushNotifier
	attempts int
	backoff  time.Duration
}

func NewDispatcher(notifier PushNotifier) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
}

// Dispatch returns immediately; delivery happens in the background.
func (d *Dispatcher) Dispatch(deviceToken, eventType string, payload []byte) {
	go d.deliver(deviceToken, eventType, payload)
}

func (d *Dispatcher) deliver(deviceToken, eventType string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if err = d.notifier.Notify(ctx, deviceToken, eventType, payload); err == nil {
			return
		}
		time.Sleep(d.backoff * time.Duration(attempt))
	}
	log.Printf("push %s to %s dropped after %d attempts: %v", eventType, deviceToken, d.attempts, err)
}
