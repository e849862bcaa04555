package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStaticProviderByType(t *testing.T) {
	p := NewStaticProvider()
	text, err := p.Generate(context.Background(), "dest-1", "history", "en")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(text, "history") {
		t.Fatalf("unexpected narration: %q", text)
	}
}

func TestStaticProviderLanguageOverride(t *testing.T) {
	p := NewStaticProvider()
	p.ByLanguage = map[string]map[string]string{
		"es": {"history": "Aquí se hizo historia."},
	}
	text, err := p.Generate(context.Background(), "dest-1", "history", "es")
	if err != nil || text != "Aquí se hizo historia." {
		t.Fatalf("expected spanish override, got %q (%v)", text, err)
	}
}

func TestStaticProviderFallback(t *testing.T) {
	p := NewStaticProvider()
	text, err := p.Generate(context.Background(), "dest-1", "unknown-type", "en")
	if err != nil || text != DefaultNarration {
		t.Fatalf("expected default narration, got %q (%v)", text, err)
	}
	if _, err := p.Generate(context.Background(), "", "unknown-type", "en"); err == nil {
		t.Fatalf("expected error for unknown destination")
	}
}

func TestNoopNarrator(t *testing.T) {
	ref, err := NoopNarrator{}.Narrate(context.Background(), "hello", "default", "en")
	if err != nil || ref == "" {
		t.Fatalf("narrate: %q %v", ref, err)
	}
	if _, err := (NoopNarrator{}).Narrate(context.Background(), "", "default", "en"); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
	fail  int
}

func (r *recordingNotifier) Notify(_ context.Context, _, _ string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.fail {
		return errors.New("push unavailable")
	}
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDispatcherRetries(t *testing.T) {
	notifier := &recordingNotifier{fail: 2}
	d := NewDispatcher(notifier)
	d.backoff = time.Millisecond

	d.Dispatch("device-1", "arrival", []byte(`{}`))

	deadline := time.Now().Add(time.Second)
	for notifier.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 attempts, got %d", notifier.count())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatcherGivesUp(t *testing.T) {
	notifier := &recordingNotifier{fail: 10}
	d := NewDispatcher(notifier)
	d.backoff = time.Millisecond

	d.Dispatch("device-1", "arrival", nil)

	deadline := time.Now().Add(time.Second)
	for notifier.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected bounded attempts, got %d", notifier.count())
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if notifier.count() > 3 {
		t.Fatalf("retry not bounded: %d attempts", notifier.count())
	}
}
