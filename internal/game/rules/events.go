package rules

import (
	"sync"
	"time"
)

// EventType identifies a match state change.
type EventType string

const (
	EventMatchStarted       EventType = "MATCH_STARTED"
	EventMulliganResolved   EventType = "MULLIGAN_RESOLVED"
	EventTurnStarted        EventType = "TURN_STARTED"
	EventPhaseChanged       EventType = "PHASE_CHANGED"
	EventLevelUp            EventType = "LEVEL_UP"
	EventAwakened           EventType = "AWAKENED"
	EventCardDrawn          EventType = "CARD_DRAWN"
	EventCardPlayed         EventType = "CARD_PLAYED"
	EventUnitEntered        EventType = "UNIT_ENTERED"
	EventUnitReplaced       EventType = "UNIT_REPLACED"
	EventUnitDestroyed      EventType = "UNIT_DESTROYED"
	EventUnitBounced        EventType = "UNIT_BOUNCED"
	EventItemAttached       EventType = "ITEM_ATTACHED"
	EventActiveUsed         EventType = "ACTIVE_USED"
	EventAttackDeclared     EventType = "ATTACK_DECLARED"
	EventGuardianIntercept  EventType = "GUARDIAN_INTERCEPT"
	EventBlockResolved      EventType = "BLOCK_RESOLVED"
	EventDamageRevealed     EventType = "DAMAGE_REVEALED"
	EventDamageHealed       EventType = "DAMAGE_HEALED"
	EventSelectionRequested EventType = "SELECTION_REQUESTED"
	EventSelectionResolved  EventType = "SELECTION_RESOLVED"
	EventCardDiscarded      EventType = "CARD_DISCARDED"
	EventPlayerDisconnected EventType = "PLAYER_DISCONNECTED"
	EventPlayerReconnected  EventType = "PLAYER_RECONNECTED"
	EventMatchEnded         EventType = "MATCH_ENDED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType
	TargetID    string // card instance or player the event is about
	SourceID    string // card instance that caused it, if any
	PlayerID    string // controlling player
	Amount      int
	Slot        int
	Description string
	Timestamp   time.Time
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Listeners must not subscribe or unsubscribe from within the callback.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		SourceID:  sourceID,
		PlayerID:  playerID,
		Slot:      -1,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Amount = amount
	return evt
}
