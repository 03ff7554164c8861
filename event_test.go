package nitrite

import (
	"sync"
	"testing"
)

func TestEventBusPublishAndUnsubscribe(t *testing.T) {
	bus := newEventBus(nil)

	var mu sync.Mutex
	var received []EventType
	ref := bus.Subscribe(ListenerFunc(func(info CollectionEventInfo) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, info.Type)
	}))

	bus.Publish(CollectionEventInfo{Type: EventInsert})
	bus.Unsubscribe(ref)
	bus.Publish(CollectionEventInfo{Type: EventRemove})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != EventInsert {
		t.Fatalf("expected exactly one EventInsert before unsubscribe, got %v", received)
	}
}

func TestEventBusSurvivesPanickingListener(t *testing.T) {
	bus := newEventBus(nil)
	bus.Subscribe(ListenerFunc(func(CollectionEventInfo) {
		panic("listener exploded")
	}))

	var called bool
	bus.Subscribe(ListenerFunc(func(CollectionEventInfo) {
		called = true
	}))

	bus.Publish(CollectionEventInfo{Type: EventInsert})
	if !called {
		t.Error("a panicking listener must not prevent later listeners from running")
	}
}

func TestEventTypeString(t *testing.T) {
	if EventIndexStart.String() != "IndexStart" {
		t.Errorf("String() = %q, want IndexStart", EventIndexStart.String())
	}
}
