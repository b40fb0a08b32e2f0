package rules

import "testing"

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	destroyed := 0
	drawn := 0

	handle1 := bus.SubscribeTyped(EventUnitDestroyed, func(e Event) {
		destroyed++
	})
	handle2 := bus.SubscribeTyped(EventCardDrawn, func(e Event) {
		drawn++
	})

	bus.Publish(NewEvent(EventUnitDestroyed, "card1", "card2", "p1"))
	if destroyed != 1 {
		t.Fatalf("expected destroyed count 1, got %d", destroyed)
	}
	if drawn != 0 {
		t.Fatalf("expected drawn count 0, got %d", drawn)
	}

	bus.Publish(NewEventWithAmount(EventCardDrawn, "p1", "", "p1", 2))
	if drawn != 1 {
		t.Fatalf("expected drawn count 1, got %d", drawn)
	}

	bus.Unsubscribe(handle1)
	bus.Publish(NewEvent(EventUnitDestroyed, "card3", "", "p1"))
	if destroyed != 1 {
		t.Fatalf("expected destroyed count to stay 1 after unsubscribe, got %d", destroyed)
	}

	bus.Unsubscribe(handle2)
	bus.Publish(NewEvent(EventCardDrawn, "p1", "", "p1"))
	if drawn != 1 {
		t.Fatalf("expected drawn count to stay 1 after unsubscribe, got %d", drawn)
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewEventBus()

	all := 0
	handle := bus.Subscribe(func(e Event) {
		all++
	})

	bus.Publish(NewEvent(EventPhaseChanged, "", "", "p1"))
	bus.Publish(NewEvent(EventAttackDeclared, "card1", "card1", "p1"))
	bus.Publish(NewEvent(EventMatchEnded, "", "", "p2"))

	if all != 3 {
		t.Fatalf("expected 3 events, got %d", all)
	}

	bus.Unsubscribe(handle)
	bus.Publish(NewEvent(EventPhaseChanged, "", "", "p1"))
	if all != 3 {
		t.Fatalf("expected count to stay 3 after unsubscribe, got %d", all)
	}
}

func TestEventBusNilListener(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Fatalf("expected -1 handle for nil listener, got %d", h)
	}
	if h := bus.SubscribeTyped(EventLevelUp, nil); h != -1 {
		t.Fatalf("expected -1 handle for nil typed listener, got %d", h)
	}
}

func TestNewEventDefaults(t *testing.T) {
	evt := NewEventWithAmount(EventDamageRevealed, "p2", "card9", "p2", 3)
	if evt.Amount != 3 || evt.Slot != -1 {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}
