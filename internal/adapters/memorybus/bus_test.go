package memorybus

import (
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

func receive(t *testing.T, ch <-chan ports.Event) ports.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
	return ports.Event{}
}

func TestBus_PublishReachesSubscribers(t *testing.T) {
	b := New()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish("library.added", []byte(`{"catalogId":"v1"}`))

	got1 := receive(t, ch1)
	got2 := receive(t, ch2)
	if got1.Topic != "library.added" || got2.Topic != "library.added" {
		t.Fatalf("unexpected topics: %q %q", got1.Topic, got2.Topic)
	}
	if got1.ID == "" || got1.ID != got2.ID {
		t.Fatalf("expected one shared non-empty event id, got %q and %q", got1.ID, got2.ID)
	}
}

func TestBus_CancelAndClose(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	other, _ := b.Subscribe()
	b.Close()
	if _, ok := <-other; ok {
		t.Fatalf("expected closed channel after Close")
	}

	b.Publish("ignored", nil)
	late, _ := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("subscribe after Close should return a closed channel")
	}
}
