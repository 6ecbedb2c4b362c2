package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange EventType = "balance_change"
	EventTypeAccountOpened EventType = "account_opened"
	EventTypeGiveawayEnded EventType = "giveaway_ended"
	EventTypePokemonCaught EventType = "pokemon_caught"
	EventTypeMemberJailed  EventType = "member_jailed"
	EventTypeStreamLive    EventType = "stream_live"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent fires after any wallet or bank mutation commits.
type BalanceChangeEvent struct {
	UserID       string
	OldWallet    int64
	NewWallet    int64
	ChangeReason string
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountOpenedEvent fires when a user opens an economy account.
type AccountOpenedEvent struct {
	UserID        string
	InitialWallet int64
}

func (e AccountOpenedEvent) Type() EventType {
	return EventTypeAccountOpened
}

// GiveawayEndedEvent fires after a draw completes.
type GiveawayEndedEvent struct {
	GuildID    string
	MessageID  string
	Prize      string
	WinnerIDs  []string
	EntryCount int
}

func (e GiveawayEndedEvent) Type() EventType {
	return EventTypeGiveawayEnded
}

// PokemonCaughtEvent fires after a successful catch is persisted.
type PokemonCaughtEvent struct {
	UserID     string
	SpeciesID  int
	InstanceID string
}

func (e PokemonCaughtEvent) Type() EventType {
	return EventTypePokemonCaught
}

// MemberJailedEvent fires when a member is jailed or released.
type MemberJailedEvent struct {
	GuildID  string
	UserID   string
	Released bool
}

func (e MemberJailedEvent) Type() EventType {
	return EventTypeMemberJailed
}

// StreamLiveEvent fires on an offline-to-online transition.
type StreamLiveEvent struct {
	Username    string
	Title       string
	ViewerCount int
}

func (e StreamLiveEvent) Type() EventType {
	return EventTypeStreamLive
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously so a slow consumer never blocks the emitting subsystem.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
